package tracesort

import (
	"fmt"
	"math"
	"unsafe"

	streamerrors "github.com/tamirms/tracesort/errors"
	"github.com/tamirms/tracesort/internal/tracefmt"
)

// Stream is the logical partition of records by I/O direction.
type Stream uint8

const (
	Reads Stream = iota
	Writes
)

// NumStreams is the number of output streams a run produces.
const NumStreams = 2

func (s Stream) String() string {
	if s == Writes {
		return "write"
	}
	return "read"
}

// streamOf maps a line's mode character to its stream.
// ParseLine only admits 'R' and 'W'.
func streamOf(mode byte) Stream {
	if mode == tracefmt.ModeWrite {
		return Writes
	}
	return Reads
}

// Record is one trace entry plus the byte bookkeeping that ties it to both
// its source line and its destination line.
//
// Extent holds the serialized line length (line plus terminator) until
// placeRecords runs; from then on it is the absolute offset one past the end
// of the record's line in the destination file. A record's line therefore
// starts at the previous slot's Extent.
type Record struct {
	Size         uint32
	Source       int32 // index into the SourceSet
	Timestamp    float64
	SourceOffset int64 // byte offset of the line in its source file
	Extent       int64
}

// HistogramSlot counts the records of one transfer size.
type HistogramSlot struct {
	Size  uint32
	Count uint64
}

const recordSize = uint64(unsafe.Sizeof(Record{}))

// recordStore owns the per-stream record and histogram arrays for one run.
// Record arrays have one extra head slot (index 0) that the sorter uses as a
// sentinel; real records live in [1, n].
type recordStore struct {
	records    [NumStreams][]Record
	histograms [NumStreams][]HistogramSlot
}

// newRecordStore allocates arrays sized exactly from the scan statistics.
func newRecordStore(stats *Statistics) (*recordStore, error) {
	s := &recordStore{}
	maxSlots := uint64(math.MaxInt) / recordSize
	for st := range Stream(NumStreams) {
		n := stats.Records[st]
		if n >= maxSlots {
			return nil, fmt.Errorf("%w: %d %s records exceed addressable memory", streamerrors.ErrResource, n, st)
		}
		s.records[st] = make([]Record, n+1)
		s.histograms[st] = make([]HistogramSlot, stats.Distinct(st))
	}
	return s, nil
}

// count returns the number of real records in a stream.
func (s *recordStore) count(st Stream) int {
	return len(s.records[st]) - 1
}
