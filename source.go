package tracesort

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	streamerrors "github.com/tamirms/tracesort/errors"
	"github.com/tamirms/tracesort/internal/tracefmt"
)

const (
	// readBufferSize is the buffered reader size for source scans. It also
	// bounds the length of a single trace line.
	readBufferSize = 1 << 20

	// DefaultPattern selects source files inside an input directory.
	DefaultPattern = "*.csv"
)

// source is one trace file of a SourceSet.
type source struct {
	path string
	file *os.File
}

// SourceSet is the ordered collection of trace files a run reads.
// File order defines record slot order, so it is part of the output
// contract: the same paths in the same order always produce the same bytes.
//
// Handles stay open from the scan phase through extraction and are closed
// once by Close.
type SourceSet struct {
	sources []source
}

// OpenSources opens every path for reading.
func OpenSources(paths []string) (*SourceSet, error) {
	if len(paths) == 0 {
		return nil, streamerrors.ErrNoSources
	}
	set := &SourceSet{sources: make([]source, 0, len(paths))}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			primaryErr := fmt.Errorf("%w: open source: %w", streamerrors.ErrResource, err)
			return nil, errors.Join(primaryErr, set.Close())
		}
		fadviseSequential(int(f.Fd()), 0, 0)
		set.sources = append(set.sources, source{path: p, file: f})
	}
	return set, nil
}

// DiscoverSources returns the files in dir matching pattern, in lexical order.
// An empty pattern means DefaultPattern.
func DiscoverSources(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("discover sources: %w", err)
	}
	paths := matches[:0]
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
		}
		if info.Mode().IsRegular() {
			paths = append(paths, m)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: nothing matches %s in %s", streamerrors.ErrNoSources, pattern, dir)
	}
	slices.Sort(paths)
	return paths, nil
}

// Len returns the number of source files.
func (s *SourceSet) Len() int {
	return len(s.sources)
}

// Paths returns the source paths in iteration order.
func (s *SourceSet) Paths() []string {
	paths := make([]string, len(s.sources))
	for i, src := range s.sources {
		paths[i] = src.path
	}
	return paths
}

// Close closes every open handle. Idempotent.
func (s *SourceSet) Close() error {
	var errs []error
	for i := range s.sources {
		if s.sources[i].file == nil {
			continue
		}
		if err := s.sources[i].file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.sources[i].path, err))
		}
		s.sources[i].file = nil
	}
	return errors.Join(errs...)
}

// recordFunc receives one parsed record together with the byte offset of its
// line in the source file and the line's serialized output length
// (line plus one terminator byte).
type recordFunc func(e tracefmt.Entry, offset, extent int64) error

// eachRecord reads src from the start, skips the header line and blank lines,
// and calls fn for every record. The read position is back at the start of
// the file when eachRecord returns.
func (s *source) eachRecord(ctx context.Context, fn recordFunc) (err error) {
	if s.file == nil {
		return fmt.Errorf("%w: %s is closed", streamerrors.ErrResource, s.path)
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewind %s: %w", streamerrors.ErrResource, s.path, err)
	}
	defer func() {
		if _, serr := s.file.Seek(0, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("%w: rewind %s: %w", streamerrors.ErrResource, s.path, serr)
		}
	}()

	br := bufio.NewReaderSize(s.file, readBufferSize)
	var offset int64
	lineNo := 0
	checkCounter := 0
	for {
		raw, rerr := br.ReadSlice('\n')
		if errors.Is(rerr, bufio.ErrBufferFull) {
			return &streamerrors.FormatError{
				Path: s.path,
				Line: lineNo + 1,
				Raw:  string(raw[:64]),
				Err:  fmt.Errorf("%w: line longer than %d bytes", streamerrors.ErrFormat, readBufferSize),
			}
		}
		if rerr != nil && rerr != io.EOF {
			return fmt.Errorf("%w: read %s: %w", streamerrors.ErrResource, s.path, rerr)
		}

		if len(raw) > 0 {
			lineNo++
			line := tracefmt.TrimEOL(raw)
			if lineNo > 1 && len(line) > 0 {
				e, perr := tracefmt.ParseLine(line)
				if perr != nil {
					return &streamerrors.FormatError{Path: s.path, Line: lineNo, Raw: string(line), Err: perr}
				}
				if err := fn(e, offset, int64(len(line))+1); err != nil {
					return err
				}
			}
			offset += int64(len(raw))
		}
		if rerr == io.EOF {
			return nil
		}

		checkCounter++
		if checkCounter >= contextCheckInterval {
			checkCounter = 0
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}
