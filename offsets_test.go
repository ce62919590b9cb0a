package tracesort

import (
	"testing"

	"github.com/tamirms/tracesort/internal/tracefmt"
)

func TestPlaceRecords(t *testing.T) {
	recs := []Record{{Extent: 999}, {Extent: 10}, {Extent: 1}, {Extent: 25}}
	end := placeRecords(recs)

	want := []int64{int64(tracefmt.HeaderLen), 52, 53, 78}
	for i, w := range want {
		if recs[i].Extent != w {
			t.Fatalf("recs[%d].Extent = %d, want %d", i, recs[i].Extent, w)
		}
	}
	if end != 78 {
		t.Fatalf("end = %d, want 78", end)
	}
}

func TestPlaceRecordsEmpty(t *testing.T) {
	recs := []Record{{}}
	if end := placeRecords(recs); end != int64(tracefmt.HeaderLen) {
		t.Fatalf("end = %d, want %d", end, tracefmt.HeaderLen)
	}
}

func TestHistogramSection(t *testing.T) {
	got := string(histogramSection([]HistogramSlot{{512, 1}, {4096, 3}}))
	want := "\nSIZE,COUNT\n512,1\n4096,3\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := string(histogramSection(nil)); got != "\nSIZE,COUNT\n" {
		t.Fatalf("empty histogram: got %q", got)
	}
}
