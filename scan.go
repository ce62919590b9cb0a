package tracesort

import (
	"context"
	"maps"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamirms/tracesort/internal/partition"
	"github.com/tamirms/tracesort/internal/tracefmt"
)

// Statistics is the result of the scan phase: exact record counts used to
// size the record store and to give every source file its slot range.
type Statistics struct {
	// Records is the total record count per stream.
	Records [NumStreams]uint64
	// PerSource is the record count per stream per source file, in
	// SourceSet order.
	PerSource [NumStreams][]uint64
	// Sizes is the set of distinct transfer sizes per stream.
	Sizes [NumStreams]map[uint32]struct{}
}

// Distinct returns the number of distinct sizes in a stream.
func (s *Statistics) Distinct(st Stream) int {
	return len(s.Sizes[st])
}

// tally is one worker's private share of the statistics.
type tally struct {
	records [NumStreams]uint64
	sizes   [NumStreams]map[uint32]struct{}
}

func newTally() *tally {
	t := &tally{}
	for st := range Stream(NumStreams) {
		t.sizes[st] = make(map[uint32]struct{})
	}
	return t
}

func (t *tally) merge(o *tally) {
	for st := range Stream(NumStreams) {
		t.records[st] += o.records[st]
		maps.Copy(t.sizes[st], o.sizes[st])
	}
}

// scanStatistics counts records per stream and per source and collects the
// distinct sizes. Each worker scans a contiguous run of source files into a
// private tally; the tallies are merged after all workers finish, so the
// result does not depend on the worker count.
func scanStatistics(ctx context.Context, set *SourceSet, workers int, logger *zap.Logger) (*Statistics, error) {
	n := set.Len()
	stats := &Statistics{}
	for st := range Stream(NumStreams) {
		stats.PerSource[st] = make([]uint64, n)
	}

	partials := make([]*tally, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		first, last := partition.Range(n, workers, w)
		g.Go(func() error {
			local := newTally()
			for i := first; i < last; i++ {
				src := &set.sources[i]
				var counts [NumStreams]uint64
				err := src.eachRecord(gctx, func(e tracefmt.Entry, _, _ int64) error {
					st := streamOf(e.Mode)
					counts[st]++
					local.sizes[st][e.Size] = struct{}{}
					return nil
				})
				if err != nil {
					return err
				}
				for st := range Stream(NumStreams) {
					// Each index is owned by exactly one worker.
					stats.PerSource[st][i] = counts[st]
					local.records[st] += counts[st]
				}
				logger.Debug("scanned source",
					zap.String("path", src.path),
					zap.Uint64("reads", counts[Reads]),
					zap.Uint64("writes", counts[Writes]))
			}
			partials[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := newTally()
	for _, p := range partials {
		total.merge(p)
	}
	stats.Records = total.records
	stats.Sizes = total.sizes
	logger.Info("statistics collected",
		zap.Uint64("reads", stats.Records[Reads]),
		zap.Uint64("writes", stats.Records[Writes]),
		zap.Int("read_sizes", stats.Distinct(Reads)),
		zap.Int("write_sizes", stats.Distinct(Writes)))
	return stats, nil
}
