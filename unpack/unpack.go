// Package unpack prepares compressed trace sources: it extracts an optional
// tar archive and decompresses .gz and .zst files in parallel, so the engine
// always reads plain files.
package unpack

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	streamerrors "github.com/tamirms/tracesort/errors"
)

// Options configures Run.
type Options struct {
	// Dir receives the archive contents and is scanned for compressed files.
	Dir string
	// Archive is an optional .tar, .tar.gz, .tgz or .tar.zst file.
	Archive string
	// Workers bounds concurrent decompressions; 0 or less means 1.
	Workers int
	// Keep leaves compressed files in place after decompression.
	Keep   bool
	Logger *zap.Logger
}

// Result lists what Run produced.
type Result struct {
	Extracted    []string // files written from the archive
	Decompressed []string // plain files written from .gz/.zst sources, sorted
}

type codec struct {
	suffix string
	open   func(io.Reader) (io.ReadCloser, error)
}

var codecs = []codec{
	{".gz", func(r io.Reader) (io.ReadCloser, error) { return gzip.NewReader(r) }},
	{".zst", func(r io.Reader) (io.ReadCloser, error) {
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	}},
}

func codecFor(name string) (codec, bool) {
	for _, c := range codecs {
		if strings.HasSuffix(name, c.suffix) {
			return c, true
		}
	}
	return codec{}, false
}

// Run extracts opts.Archive (if set) into opts.Dir and then decompresses
// every compressed file directly inside opts.Dir.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
	}

	res := &Result{}
	if opts.Archive != "" {
		extracted, err := ExtractArchive(ctx, opts.Archive, opts.Dir)
		if err != nil {
			return nil, err
		}
		res.Extracted = extracted
		logger.Info("archive extracted", zap.String("archive", opts.Archive), zap.Int("files", len(extracted)))
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
	}
	var pending []string
	for _, e := range entries {
		if _, ok := codecFor(e.Name()); ok && e.Type().IsRegular() {
			pending = append(pending, filepath.Join(opts.Dir, e.Name()))
		}
	}

	outputs := make([]string, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, path := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := DecompressFile(path)
			if err != nil {
				return err
			}
			if !opts.Keep {
				if err := os.Remove(path); err != nil {
					return fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
				}
			}
			logger.Debug("decompressed", zap.String("source", path), zap.String("output", out))
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(outputs)
	res.Decompressed = outputs
	return res, nil
}

// DecompressFile writes the decompressed contents of path next to it, under
// its name without the compression suffix, and returns that name. The output
// appears atomically.
func DecompressFile(path string) (string, error) {
	c, ok := codecFor(path)
	if !ok {
		return "", fmt.Errorf("%w: %s", streamerrors.ErrUnsupportedArchive, path)
	}
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
	}
	defer src.Close()

	r, err := c.open(src)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", streamerrors.ErrUnsupportedArchive, path, err)
	}
	defer r.Close()

	out := strings.TrimSuffix(path, c.suffix)
	if err := writeAtomic(out, r); err != nil {
		return "", fmt.Errorf("decompress %s: %w", path, err)
	}
	return out, nil
}

// ExtractArchive extracts a tar archive, optionally gzip or zstd compressed,
// into dir and returns the paths of the regular files it wrote.
func ExtractArchive(ctx context.Context, archive, dir string) ([]string, error) {
	f, err := os.Open(archive)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(archive, ".tar"):
	case strings.HasSuffix(archive, ".tgz"), strings.HasSuffix(archive, ".tar.gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", streamerrors.ErrUnsupportedArchive, archive, err)
		}
		defer zr.Close()
		r = zr
	case strings.HasSuffix(archive, ".tar.zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", streamerrors.ErrUnsupportedArchive, archive, err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("%w: %s", streamerrors.ErrUnsupportedArchive, archive)
	}
	return ExtractTar(ctx, r, dir)
}

// ExtractTar extracts the directories and regular files of a tar stream into
// dir. Entries that would land outside dir are rejected; links and special
// files are skipped.
func ExtractTar(ctx context.Context, r io.Reader, dir string) ([]string, error) {
	tr := tar.NewReader(r)
	var written []string
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, fmt.Errorf("%w: %w", streamerrors.ErrUnsupportedArchive, err)
		}
		name := filepath.FromSlash(hdr.Name)
		if !filepath.IsLocal(name) {
			return written, fmt.Errorf("%w: entry %q escapes %s", streamerrors.ErrUnsupportedArchive, hdr.Name, dir)
		}
		target := filepath.Join(dir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return written, fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
			}
			if err := writeAtomic(target, tr); err != nil {
				return written, fmt.Errorf("extract %s: %w", hdr.Name, err)
			}
			written = append(written, target)
		}
	}
}

// writeAtomic copies r into a temporary file beside path and renames it into
// place once complete.
func writeAtomic(path string, r io.Reader) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", streamerrors.ErrResource, err)
	}
	return nil
}
