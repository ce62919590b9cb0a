package tracesort

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"

	streamerrors "github.com/tamirms/tracesort/errors"
)

// contextCheckInterval is how many lines or records a loop processes between
// context cancellation checks.
const contextCheckInterval = 10000

// Engine reorganizes a set of trace files into one file per stream, sorted
// by transfer size and then timestamp.
//
// Usage:
//
//	eng, err := tracesort.New(paths, "out", tracesort.WithProgress(os.Stdout))
//	if err != nil { return err }
//	defer eng.Close()
//
//	res, err := eng.Run(ctx)
//
// An Engine runs once. Its source handles are released when Run returns.
type Engine struct {
	cfg     *engineConfig
	sources *SourceSet
	outDir  string
	workers int

	mu     sync.Mutex
	ran    bool
	closed bool
}

// StreamResult describes one published output file.
type StreamResult struct {
	Path      string
	Records   uint64
	Histogram []HistogramSlot // ascending by size
	Bytes     int64
	Checksum  uint64 // xxHash64 of the whole file
}

// Result summarizes a completed run.
type Result struct {
	Workers int
	Streams [NumStreams]StreamResult
	Phases  []PhaseTiming
}

// New opens the source files and prepares a run writing into outDir, which is
// created if missing. Source order is significant: it fixes the order of
// records that compare equal.
func New(sources []string, outDir string, opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if len(sources) == 0 {
		return nil, streamerrors.ErrNoSources
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: output directory: %w", streamerrors.ErrResource, err)
	}

	set, err := OpenSources(sources)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		sources: set,
		outDir:  outDir,
		workers: resolveWorkers(cfg.workers, set.Len()),
	}
	cfg.logger.Info("engine ready",
		zap.Int("sources", set.Len()),
		zap.Int("workers", e.workers),
		zap.String("out_dir", outDir))
	return e, nil
}

// resolveWorkers bounds the requested worker count by the CPU count and by
// half the number of source files. The result is at least 1.
func resolveWorkers(requested, numSources int) int {
	workers := requested
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, runtime.NumCPU(), max(1, numSources/2))
	return max(workers, 1)
}

// Workers returns the worker count the run will use.
func (e *Engine) Workers() int {
	return e.workers
}

// OutputPath returns the destination file of a stream.
func (e *Engine) OutputPath(st Stream) string {
	return filepath.Join(e.outDir, e.cfg.names[st])
}

// Run executes the four phases: scan, extract, sort, write. On failure no
// output file is left under its final name.
func (e *Engine) Run(ctx context.Context) (_ *Result, err error) {
	e.mu.Lock()
	if e.closed || e.ran {
		e.mu.Unlock()
		return nil, streamerrors.ErrEngineClosed
	}
	e.ran = true
	e.mu.Unlock()

	defer func() {
		err = errors.Join(err, e.Close())
	}()

	var (
		stats *Statistics
		store *recordStore
	)
	res := &Result{Workers: e.workers}
	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{PhaseScan, func(ctx context.Context) error {
			var err error
			stats, err = scanStatistics(ctx, e.sources, e.workers, e.cfg.logger)
			return err
		}},
		{PhaseExtract, func(ctx context.Context) error {
			var err error
			store, err = newRecordStore(stats)
			if err != nil {
				return err
			}
			return extractRecords(ctx, e.sources, store, stats, e.workers)
		}},
		{PhaseSort, func(ctx context.Context) error {
			return sortStreams(ctx, store, e.workers)
		}},
		{PhaseWrite, func(ctx context.Context) error {
			return e.writeOutputs(ctx, store, res)
		}},
	}

	for _, p := range phases {
		timing, err := TimePhase(ctx, e.cfg.progress, e.cfg.logger, p.name, p.run)
		if err != nil {
			return nil, err
		}
		res.Phases = append(res.Phases, timing)
	}
	return res, nil
}

// writeOutputs places every stream, creates the output files at their exact
// sizes, copies the records and publishes the files.
func (e *Engine) writeOutputs(ctx context.Context, store *recordStore, res *Result) (err error) {
	streams := make([]streamOutput, 0, NumStreams)
	var published []string
	defer func() {
		if err != nil {
			for _, s := range streams {
				err = errors.Join(err, s.out.close())
			}
			// A later stream failed to publish; withdraw the earlier ones.
			for _, p := range published {
				if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
					err = errors.Join(err, rmErr)
				}
			}
		}
	}()

	var sizes [NumStreams]int64
	for st := range Stream(NumStreams) {
		recs := store.records[st]
		trailer := histogramSection(store.histograms[st])
		sizes[st] = placeRecords(recs) + int64(len(trailer))

		out, err := newOutputWriter(e.OutputPath(st), sizes[st])
		if err != nil {
			return err
		}
		streams = append(streams, streamOutput{stream: st, records: recs, trailer: trailer, out: out})
	}

	if err := writeStreams(ctx, e.sources.Paths(), streams, e.workers, e.cfg.logger); err != nil {
		return err
	}

	for _, s := range streams {
		sum, err := s.out.finalize()
		if err != nil {
			return err
		}
		published = append(published, s.out.path)
		res.Streams[s.stream] = StreamResult{
			Path:      s.out.path,
			Records:   uint64(store.count(s.stream)),
			Histogram: store.histograms[s.stream],
			Bytes:     sizes[s.stream],
			Checksum:  sum,
		}
		e.cfg.logger.Info("stream published",
			zap.String("path", s.out.path),
			zap.Int("records", store.count(s.stream)),
			zap.Int64("bytes", sizes[s.stream]),
			zap.Uint64("checksum", sum))
	}
	return nil
}

// Close releases the source handles. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.sources.Close()
}
