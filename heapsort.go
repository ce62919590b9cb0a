package tracesort

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	streamerrors "github.com/tamirms/tracesort/errors"
)

// larger reports whether a sorts after b: by size, then by timestamp.
func larger(a, b *Record) bool {
	if a.Size != b.Size {
		return a.Size > b.Size
	}
	return a.Timestamp > b.Timestamp
}

// siftDown restores the max-heap property of recs[1:n+1] below node i.
// Children of node i are 2i and 2i+1.
func siftDown(recs []Record, i, n int) {
	for {
		child := 2 * i
		if child > n {
			return
		}
		if child < n && larger(&recs[child+1], &recs[child]) {
			child++
		}
		if !larger(&recs[child], &recs[i]) {
			return
		}
		recs[i], recs[child] = recs[child], recs[i]
		i = child
	}
}

// heapSort sorts recs[1:] ascending by (Size, Timestamp) in place.
// recs[0] is left untouched. Records that compare equal keep a fixed but
// unspecified relative order: the result depends only on the input layout.
func heapSort(ctx context.Context, recs []Record) error {
	n := len(recs) - 1
	checkCounter := 0
	for i := n / 2; i >= 1; i-- {
		siftDown(recs, i, n)
	}
	for end := n; end > 1; end-- {
		recs[1], recs[end] = recs[end], recs[1]
		siftDown(recs, 1, end-1)

		checkCounter++
		if checkCounter >= contextCheckInterval {
			checkCounter = 0
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildHistogram fills hist from sorted records. hist must have exactly one
// slot per distinct size; any other count means the records changed after
// the scan phase.
func buildHistogram(recs []Record, hist []HistogramSlot) error {
	j := -1
	for i := 1; i < len(recs); i++ {
		size := recs[i].Size
		if j < 0 || hist[j].Size != size {
			j++
			if j == len(hist) {
				return fmt.Errorf("%w: more than %d distinct sizes", streamerrors.ErrCountMismatch, len(hist))
			}
			hist[j] = HistogramSlot{Size: size}
		}
		hist[j].Count++
	}
	if j+1 != len(hist) {
		return fmt.Errorf("%w: %d distinct sizes, %d counted", streamerrors.ErrCountMismatch, j+1, len(hist))
	}
	return nil
}

// sortStreams sorts every stream and builds its histogram. With more than
// one worker the streams are sorted concurrently.
func sortStreams(ctx context.Context, store *recordStore, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(workers, NumStreams)))
	for st := range Stream(NumStreams) {
		g.Go(func() error {
			recs := store.records[st]
			if err := heapSort(gctx, recs); err != nil {
				return err
			}
			if err := buildHistogram(recs, store.histograms[st]); err != nil {
				return fmt.Errorf("%s stream: %w", st, err)
			}
			return nil
		})
	}
	return g.Wait()
}
