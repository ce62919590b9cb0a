// Tracegen writes a deterministic synthetic set of trace files.
//
// Usage:
//
//	tracegen -d traces -n 16 -r 1000000
//	tracegen -d traces -n 4 -r 100000 --compress gz
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/tamirms/tracesort/internal/tracegen"
)

func main() {
	fs := pflag.NewFlagSet("tracegen", pflag.ExitOnError)
	dir := fs.StringP("dir", "d", "traces", "output directory")
	files := fs.IntP("files", "n", 8, "number of trace files")
	records := fs.IntP("records", "r", 100_000, "records per file")
	seed := fs.Uint32("seed", 0x1234, "murmur3 seed")
	writes := fs.Int("write-percent", 30, "share of write records (0-100)")
	compress := fs.String("compress", "", "compress files: gz or zst")
	_ = fs.Parse(os.Args[1:])

	if *writes < 0 || *writes > 100 {
		fmt.Fprintln(os.Stderr, "write-percent must be within 0-100")
		os.Exit(2)
	}

	paths, err := tracegen.WriteFiles(*dir, tracegen.Config{
		Files:        *files,
		Records:      *records,
		Seed:         *seed,
		WritePercent: *writes,
		Compress:     *compress,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d files with %d records each to %s\n", len(paths), *records, *dir)
}
