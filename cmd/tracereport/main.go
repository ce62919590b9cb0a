// Tracereport compares two benchmark runs of tracesort from their captured
// phase timing output and, optionally, iostat samples.
//
// Usage:
//
//	tracesort -i traces -o out > result/opt-time
//	tracereport --baseline-time result/raw-time --baseline-perf result/raw-perf \
//	    --optimized-time result/opt-time --optimized-perf result/opt-perf
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/tamirms/tracesort"
	"github.com/tamirms/tracesort/report"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("tracereport", pflag.ContinueOnError)
	baseTime := fs.String("baseline-time", "result/raw-time", "phase timing output of the baseline run")
	basePerf := fs.String("baseline-perf", "", "iostat output captured during the baseline run")
	baseLabel := fs.String("baseline-label", "Unoptimized", "column label of the baseline run")
	optTime := fs.String("optimized-time", "result/opt-time", "phase timing output of the optimized run")
	optPerf := fs.String("optimized-perf", "", "iostat output captured during the optimized run")
	optLabel := fs.String("optimized-label", "Optimized", "column label of the optimized run")
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	required := []string{tracesort.PhaseScan, tracesort.PhaseExtract, tracesort.PhaseSort, tracesort.PhaseWrite}
	osfs := afero.NewOsFs()
	base, err := report.LoadColumn(osfs, *baseLabel, *baseTime, *basePerf, required...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	opt, err := report.LoadColumn(osfs, *optLabel, *optTime, *optPerf, required...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := report.Compare(os.Stdout, base, opt); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
