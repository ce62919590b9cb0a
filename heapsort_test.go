package tracesort

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"testing"

	streamerrors "github.com/tamirms/tracesort/errors"
)

func compareRecords(a, b Record) int {
	if c := cmp.Compare(a.Size, b.Size); c != 0 {
		return c
	}
	return cmp.Compare(a.Timestamp, b.Timestamp)
}

func randomRecords(t *testing.T, n int) []Record {
	rng := newTestRNG(t)
	recs := make([]Record, n+1)
	for i := 1; i <= n; i++ {
		recs[i] = Record{
			Size:      sizePool[rng.IntN(len(sizePool))],
			Timestamp: float64(rng.IntN(50)),
			Source:    int32(i),
		}
	}
	return recs
}

func TestHeapSortMatchesReference(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 7, 100, 4097} {
		recs := randomRecords(t, n)
		recs[0] = Record{Extent: 42, Source: -1}

		want := slices.Clone(recs[1:])
		slices.SortFunc(want, compareRecords)

		if err := heapSort(context.Background(), recs); err != nil {
			t.Fatal(err)
		}
		if recs[0].Source != -1 || recs[0].Extent != 42 {
			t.Fatalf("n=%d: sentinel slot modified: %+v", n, recs[0])
		}
		for i := range want {
			if compareRecords(recs[i+1], want[i]) != 0 {
				t.Fatalf("n=%d: position %d: got (%d, %v), want (%d, %v)",
					n, i+1, recs[i+1].Size, recs[i+1].Timestamp, want[i].Size, want[i].Timestamp)
			}
		}
	}
}

func TestHeapSortIsPermutation(t *testing.T) {
	recs := randomRecords(t, 1000)
	if err := heapSort(context.Background(), recs); err != nil {
		t.Fatal(err)
	}
	seen := make(map[int32]bool, 1000)
	for _, r := range recs[1:] {
		if seen[r.Source] {
			t.Fatalf("record %d appears twice", r.Source)
		}
		seen[r.Source] = true
	}
	if len(seen) != 1000 {
		t.Fatalf("got %d distinct records, want 1000", len(seen))
	}
}

func TestHeapSortTimestampTieBreak(t *testing.T) {
	recs := []Record{{}, {Size: 512, Timestamp: 5.0}, {Size: 512, Timestamp: 3.0}}
	if err := heapSort(context.Background(), recs); err != nil {
		t.Fatal(err)
	}
	if recs[1].Timestamp != 3.0 || recs[2].Timestamp != 5.0 {
		t.Fatalf("got timestamps %v, %v; want 3, 5", recs[1].Timestamp, recs[2].Timestamp)
	}
}

func TestHeapSortCanceled(t *testing.T) {
	recs := randomRecords(t, 3*contextCheckInterval)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := heapSort(ctx, recs); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestBuildHistogram(t *testing.T) {
	recs := []Record{{}, {Size: 0}, {Size: 512}, {Size: 512}, {Size: 4096}}
	hist := make([]HistogramSlot, 3)
	if err := buildHistogram(recs, hist); err != nil {
		t.Fatal(err)
	}
	want := []HistogramSlot{{0, 1}, {512, 2}, {4096, 1}}
	if !slices.Equal(hist, want) {
		t.Fatalf("got %v, want %v", hist, want)
	}

	if err := buildHistogram([]Record{{}}, nil); err != nil {
		t.Fatalf("empty stream: %v", err)
	}
}

func TestBuildHistogramMismatch(t *testing.T) {
	recs := []Record{{}, {Size: 1}, {Size: 2}}
	if err := buildHistogram(recs, make([]HistogramSlot, 1)); !errors.Is(err, streamerrors.ErrCountMismatch) {
		t.Fatalf("too many sizes: got %v", err)
	}
	if err := buildHistogram(recs, make([]HistogramSlot, 3)); !errors.Is(err, streamerrors.ErrCountMismatch) {
		t.Fatalf("too few sizes: got %v", err)
	}
}

func TestSortStreams(t *testing.T) {
	for _, workers := range []int{1, 4} {
		store := &recordStore{}
		store.records[Reads] = []Record{{}, {Size: 8, Timestamp: 1}, {Size: 4, Timestamp: 2}}
		store.records[Writes] = []Record{{}}
		store.histograms[Reads] = make([]HistogramSlot, 2)
		store.histograms[Writes] = nil
		if err := sortStreams(context.Background(), store, workers); err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if store.records[Reads][1].Size != 4 || store.records[Reads][2].Size != 8 {
			t.Fatalf("workers=%d: reads not sorted: %+v", workers, store.records[Reads])
		}
		if store.histograms[Reads][0] != (HistogramSlot{4, 1}) {
			t.Fatalf("workers=%d: histogram %v", workers, store.histograms[Reads])
		}
	}
}
