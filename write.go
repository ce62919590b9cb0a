package tracesort

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	streamerrors "github.com/tamirms/tracesort/errors"
	"github.com/tamirms/tracesort/internal/partition"
	"github.com/tamirms/tracesort/internal/tracefmt"
)

// streamOutput is one placed stream ready to be copied into its file.
type streamOutput struct {
	stream  Stream
	records []Record // placed: Extent holds end offsets
	trailer []byte   // histogram section
	out     *outputWriter
}

// writeStreams copies every record line from its source into its place in the
// output files. Worker w handles the w-th contiguous slice of sorted slots of
// every stream; worker 0 also writes each header and the last worker each
// histogram trailer. Workers open their own read handles, so no file offset
// is shared, and their destination ranges never overlap.
func writeStreams(ctx context.Context, paths []string, streams []streamOutput, workers int, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() (err error) {
			files, err := openReaders(paths)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, closeReaders(files))
			}()

			for i := range streams {
				n, err := writeSlice(gctx, files, &streams[i], w, workers)
				if err != nil {
					return fmt.Errorf("%s stream: %w", streams[i].stream, err)
				}
				logger.Debug("wrote slice",
					zap.Int("worker", w),
					zap.Stringer("stream", streams[i].stream),
					zap.Int("records", n))
			}
			return nil
		})
	}
	return g.Wait()
}

// writeSlice writes worker w's share of one stream and returns the number of
// records it copied.
func writeSlice(ctx context.Context, files []*os.File, s *streamOutput, w, workers int) (int, error) {
	recs := s.records
	n := len(recs) - 1
	start, end := partition.Range(n, workers, w)

	if w == 0 {
		dst, err := s.out.region(0, int64(tracefmt.HeaderLen))
		if err != nil {
			return 0, err
		}
		copy(dst, tracefmt.Header+"\n")
	}

	checkCounter := 0
	for i := start + 1; i <= end; i++ {
		r := &recs[i]
		dst, err := s.out.region(recs[i-1].Extent, r.Extent)
		if err != nil {
			return 0, err
		}
		line := dst[:len(dst)-1]
		if err := readLine(files[r.Source], line, r.SourceOffset); err != nil {
			return 0, err
		}
		dst[len(dst)-1] = '\n'

		checkCounter++
		if checkCounter >= contextCheckInterval {
			checkCounter = 0
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
	}

	if w == workers-1 {
		dataEnd := recs[n].Extent
		dst, err := s.out.region(dataEnd, dataEnd+int64(len(s.trailer)))
		if err != nil {
			return 0, err
		}
		copy(dst, s.trailer)
	}
	return end - start, nil
}

// readLine fills line with the bytes at offset. A short read or an embedded
// line break means the source no longer matches what was scanned.
func readLine(f *os.File, line []byte, offset int64) error {
	n, err := f.ReadAt(line, offset)
	if n < len(line) {
		if err == nil || errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s: short read at offset %d", streamerrors.ErrSourceChanged, f.Name(), offset)
		}
		return fmt.Errorf("%w: read %s: %w", streamerrors.ErrResource, f.Name(), err)
	}
	if bytes.IndexByte(line, '\n') >= 0 {
		return fmt.Errorf("%w: %s: line at offset %d changed length", streamerrors.ErrSourceChanged, f.Name(), offset)
	}
	return nil
}

func openReaders(paths []string) ([]*os.File, error) {
	files := make([]*os.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			primaryErr := fmt.Errorf("%w: open source: %w", streamerrors.ErrResource, err)
			return nil, errors.Join(primaryErr, closeReaders(files))
		}
		fadviseRandom(int(f.Fd()), 0, 0)
		files = append(files, f)
	}
	return files, nil
}

func closeReaders(files []*os.File) error {
	var errs []error
	for _, f := range files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
