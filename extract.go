package tracesort

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	streamerrors "github.com/tamirms/tracesort/errors"
	"github.com/tamirms/tracesort/internal/partition"
	"github.com/tamirms/tracesort/internal/tracefmt"
)

// slotPartition returns, per stream, the first slot of every source file plus
// a final end marker. Source i owns slots [starts[i], starts[i+1]).
// Numbering begins at 1 because slot 0 is the sorter's sentinel.
func slotPartition(stats *Statistics) [NumStreams][]uint64 {
	var starts [NumStreams][]uint64
	for st := range Stream(NumStreams) {
		starts[st] = partition.PrefixSums(stats.PerSource[st], 1)
	}
	return starts
}

// extractRecords fills the record store. Workers own contiguous runs of
// source files and each file writes only its own slot range, so workers
// never touch the same slot and the layout is independent of the worker
// count.
func extractRecords(ctx context.Context, set *SourceSet, store *recordStore, stats *Statistics, workers int) error {
	starts := slotPartition(stats)
	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		first, last := partition.Range(set.Len(), workers, w)
		g.Go(func() error {
			for i := first; i < last; i++ {
				if err := extractSource(gctx, set, i, store, &starts); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func extractSource(ctx context.Context, set *SourceSet, idx int, store *recordStore, starts *[NumStreams][]uint64) error {
	src := &set.sources[idx]
	var cursor, limit [NumStreams]uint64
	for st := range Stream(NumStreams) {
		cursor[st] = starts[st][idx]
		limit[st] = starts[st][idx+1]
	}

	err := src.eachRecord(ctx, func(e tracefmt.Entry, offset, extent int64) error {
		st := streamOf(e.Mode)
		if cursor[st] >= limit[st] {
			return fmt.Errorf("%w: %s has more %s records than the %d counted",
				streamerrors.ErrCountMismatch, src.path, st, limit[st]-starts[st][idx])
		}
		store.records[st][cursor[st]] = Record{
			Size:         e.Size,
			Source:       int32(idx),
			Timestamp:    e.Timestamp,
			SourceOffset: offset,
			Extent:       extent,
		}
		cursor[st]++
		return nil
	})
	if err != nil {
		return err
	}

	for st := range Stream(NumStreams) {
		if cursor[st] != limit[st] {
			return fmt.Errorf("%w: %s has %d %s records, %d counted",
				streamerrors.ErrCountMismatch, src.path, cursor[st]-starts[st][idx], st, limit[st]-starts[st][idx])
		}
	}
	return nil
}
