package report

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
)

const (
	headWidth  = 16
	printWidth = 12
)

// Column is one run in the comparison table.
type Column struct {
	Label   string
	Timings *Timings
	Summary Summary
}

// LoadColumn reads a timing file and an optional iostat file from fs. The
// samples are averaged over the span the timings cover.
func LoadColumn(fs afero.Fs, label, timingPath, perfPath string, required ...string) (Column, error) {
	col := Column{Label: label}
	f, err := fs.Open(timingPath)
	if err != nil {
		return col, err
	}
	defer f.Close()
	if col.Timings, err = ParseTimings(f); err != nil {
		return col, fmt.Errorf("%s: %w", timingPath, err)
	}
	if err := col.Timings.Require(required...); err != nil {
		return col, fmt.Errorf("%s: %w", timingPath, err)
	}

	if perfPath == "" {
		return col, nil
	}
	pf, err := fs.Open(perfPath)
	if err != nil {
		return col, err
	}
	defer pf.Close()
	samples, err := ParseSamples(pf)
	if err != nil {
		return col, fmt.Errorf("%s: %w", perfPath, err)
	}
	col.Summary = Summarize(samples, SamplesFor(col.Timings.Total()))
	return col, nil
}

// Compare prints the table: total timespan, then average CPU user share,
// I/O time share and bandwidth per column.
func Compare(w io.Writer, cols ...Column) error {
	p := &printer{w: w}
	p.printf(" %*s", headWidth, " ")
	for _, c := range cols {
		p.printf(" %*s", printWidth, c.Label)
	}
	p.printf("\n")

	p.row("Timespan (secs)", cols, func(c Column) (float64, bool) {
		if c.Timings == nil {
			return 0, false
		}
		return c.Timings.Total(), true
	}, 2)
	p.row("% CPU Util Rate", cols, func(c Column) (float64, bool) { return c.Summary.CPUUser, c.Summary.Samples > 0 }, 3)
	p.row("% I/O Time Used", cols, func(c Column) (float64, bool) { return c.Summary.IOUtil, c.Summary.Samples > 0 }, 3)
	p.row("Bandwidth (kB/s)", cols, func(c Column) (float64, bool) { return c.Summary.Bandwidth, c.Summary.Samples > 0 }, 1)
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) row(label string, cols []Column, value func(Column) (float64, bool), prec int) {
	p.printf(" %-*s", headWidth, label)
	for _, c := range cols {
		if v, ok := value(c); ok {
			p.printf(" %*.*f", printWidth, prec, v)
		} else {
			p.printf(" %*s", printWidth, "-")
		}
	}
	p.printf("\n")
}
