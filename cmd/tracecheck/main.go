// Tracecheck verifies the stream files written by tracesort.
//
// Usage:
//
//	tracecheck -o out
//	tracecheck -o out --sources traces --read-records 59713948 --read-sizes 259
//
// With --sources, the multiset of lines in each output is also compared
// against the records of the source files.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/tamirms/tracesort"
	"github.com/tamirms/tracesort/check"
	"github.com/tamirms/tracesort/internal/tracefmt"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("tracecheck", pflag.ContinueOnError)
	outDir := fs.StringP("output", "o", "out", "directory holding the stream files")
	readName := fs.String("read-name", tracesort.DefaultReadName, "file name of the read stream")
	writeName := fs.String("write-name", tracesort.DefaultWriteName, "file name of the write stream")
	readRecords := fs.Int64("read-records", -1, "expected read records (-1 = unchecked)")
	writeRecords := fs.Int64("write-records", -1, "expected write records (-1 = unchecked)")
	readSizes := fs.Int("read-sizes", -1, "expected distinct read sizes (-1 = unchecked)")
	writeSizes := fs.Int("write-sizes", -1, "expected distinct write sizes (-1 = unchecked)")
	sourceDir := fs.String("sources", "", "source directory to compare line digests against")
	pattern := fs.String("pattern", tracesort.DefaultPattern, "glob selecting files in --sources")
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	osfs := afero.NewOsFs()
	streams := []struct {
		name   string
		expect check.Expect
	}{
		{*readName, check.Expect{Mode: tracefmt.ModeRead, Records: *readRecords, Distinct: *readSizes}},
		{*writeName, check.Expect{Mode: tracefmt.ModeWrite, Records: *writeRecords, Distinct: *writeSizes}},
	}

	var digests map[byte]check.Digest
	if *sourceDir != "" {
		paths, err := tracesort.DiscoverSources(*sourceDir, *pattern)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if digests, err = check.SourceDigests(osfs, paths); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	failed := false
	for _, s := range streams {
		rep, err := check.File(osfs, filepath.Join(*outDir, s.name), s.expect)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		rep.Print(os.Stdout)
		if digests != nil {
			want := digests[s.expect.Mode]
			if rep.Digest == want {
				fmt.Printf(" %c: Lines match the sources (%d) √\n", s.expect.Mode, want.Lines)
			} else {
				fmt.Printf(" %c: Lines differ from the sources (%d vs %d lines) !\n", s.expect.Mode, rep.Digest.Lines, want.Lines)
				failed = true
			}
		}
		fmt.Printf(" %c: xxhash64 %016x\n", s.expect.Mode, rep.Checksum)
		failed = failed || !rep.OK()
	}
	if failed {
		return 1
	}
	return 0
}
