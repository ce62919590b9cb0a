package tracesort

import "github.com/tamirms/tracesort/internal/tracefmt"

// placeRecords converts the line lengths held in Extent into absolute end
// offsets in the destination file and returns the end of the last record.
// recs[0] is set to the header, so record i always spans
// [recs[i-1].Extent, recs[i].Extent).
func placeRecords(recs []Record) int64 {
	recs[0].Extent = int64(tracefmt.HeaderLen)
	for i := 1; i < len(recs); i++ {
		recs[i].Extent += recs[i-1].Extent
	}
	return recs[len(recs)-1].Extent
}

// histogramSection renders the trailer that follows the last record: a blank
// line, the histogram header and one "size,count" row per distinct size.
func histogramSection(hist []HistogramSlot) []byte {
	buf := make([]byte, 0, len(tracefmt.HistogramHeader)+2+len(hist)*24)
	buf = append(buf, '\n')
	buf = append(buf, tracefmt.HistogramHeader...)
	buf = append(buf, '\n')
	for _, h := range hist {
		buf = tracefmt.AppendHistogramRow(buf, h.Size, h.Count)
	}
	return buf
}
