// Package tracesort reorganizes block-I/O trace files.
//
// A run reads a set of CSV trace files (one header line, then one record per
// line: timestamp, response, mode, LUN, offset, size) and produces two files,
// one for reads and one for writes. Each output holds the header, every
// record of its stream sorted by size and then timestamp, a blank line and a
// SIZE,COUNT histogram of the stream's sizes.
//
// # Basic Usage
//
//	paths, err := tracesort.DiscoverSources("traces", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eng, err := tracesort.New(paths, "out", tracesort.WithProgress(os.Stdout))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//	res, err := eng.Run(ctx)
//
// # Phases
//
// The engine never holds line text in memory. It runs four timed phases:
//
//   - Scan (scan.go): count records per stream and per source, collect sizes
//   - Extract (extract.go): parse each line into a fixed-size Record that
//     remembers where the line lives in its source
//   - Sort (heapsort.go): heap sort per stream, then the histogram
//   - Write (offsets.go, write.go, output_writer.go): compute every line's
//     destination offset and copy the lines in parallel into mmap'd outputs
//
// Output bytes do not depend on the worker count.
//
// Platform helpers: fallocate_*.go, fadvise_*.go, prefault_*.go.
package tracesort
