package tracesort

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	streamerrors "github.com/tamirms/tracesort/errors"
)

// outputWriter owns one destination stream file while it is being written.
//
// The file is created under a temporary name next to its final path,
// pre-allocated to its exact final size and memory-mapped. Writer workers
// copy records straight into disjoint byte ranges of the mapping. finalize
// flushes, closes and renames it into place, so a failed run never leaves a
// partial file under the final name.
type outputWriter struct {
	path    string // final name
	tmpPath string
	size    int64

	file *os.File
	mmap mmap.MMap
	data []byte
}

// newOutputWriter creates the temporary output for path with exactly size bytes.
func newOutputWriter(path string, size int64) (*outputWriter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("output %s: invalid size %d", path, size)
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	file, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create output: %w", streamerrors.ErrResource, err)
	}
	ow := &outputWriter{path: path, tmpPath: file.Name(), size: size, file: file}

	// Reserve blocks so a full disk fails here rather than during writes.
	if err := fallocateFile(file, size); err != nil {
		primaryErr := fmt.Errorf("%w: allocate %d bytes for %s: %w", streamerrors.ErrResource, size, path, err)
		return nil, errors.Join(primaryErr, ow.close())
	}

	mm, err := mmap.MapRegion(file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("%w: mmap %s: %w", streamerrors.ErrResource, path, err)
		return nil, errors.Join(primaryErr, ow.close())
	}
	ow.mmap = mm
	ow.data = []byte(mm)

	prefaultRegion(ow.data)
	return ow, nil
}

// region returns the mapped bytes [start, end). Safe for concurrent use
// as long as callers write disjoint ranges.
func (ow *outputWriter) region(start, end int64) ([]byte, error) {
	if start < 0 || end < start || end > ow.size {
		return nil, fmt.Errorf("output %s: region [%d, %d) outside file of %d bytes", ow.path, start, end, ow.size)
	}
	return ow.data[start:end], nil
}

// finalize publishes the output under its final name and returns the
// xxHash64 of its contents.
// On error, delegates to close() for cleanup, which removes the temp file.
// On success, nils mmap/file so that close() is a safe no-op.
func (ow *outputWriter) finalize() (uint64, error) {
	sum := xxhash.Sum64(ow.data)

	if err := ow.mmap.Flush(); err != nil {
		primaryErr := fmt.Errorf("%w: flush %s: %w", streamerrors.ErrResource, ow.path, err)
		return 0, errors.Join(primaryErr, ow.close())
	}

	unmapErr := ow.mmap.Unmap()
	ow.mmap = nil
	ow.data = nil
	if unmapErr != nil {
		primaryErr := fmt.Errorf("%w: unmap %s: %w", streamerrors.ErrResource, ow.path, unmapErr)
		return 0, errors.Join(primaryErr, ow.close())
	}

	closeErr := ow.file.Close()
	ow.file = nil
	if closeErr != nil {
		primaryErr := fmt.Errorf("%w: close %s: %w", streamerrors.ErrResource, ow.path, closeErr)
		return 0, errors.Join(primaryErr, ow.close())
	}

	if err := os.Rename(ow.tmpPath, ow.path); err != nil {
		primaryErr := fmt.Errorf("%w: publish %s: %w", streamerrors.ErrResource, ow.path, err)
		return 0, errors.Join(primaryErr, ow.close())
	}
	ow.tmpPath = ""
	return sum, nil
}

// close abandons the output without publishing it.
// Idempotent: safe to call multiple times.
func (ow *outputWriter) close() error {
	var unmapErr error
	if ow.mmap != nil {
		unmapErr = ow.mmap.Unmap()
		ow.mmap = nil
		ow.data = nil
	}
	var closeErr error
	if ow.file != nil {
		closeErr = ow.file.Close()
		ow.file = nil
	}
	var removeErr error
	if ow.tmpPath != "" {
		if err := os.Remove(ow.tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			removeErr = err
		}
		ow.tmpPath = ""
	}
	return errors.Join(unmapErr, closeErr, removeErr)
}
