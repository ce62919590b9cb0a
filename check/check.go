// Package check verifies output stream files: framing, record order,
// record counts and the size histogram, plus an order-independent digest
// that ties an output back to its sources.
package check

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"

	"github.com/tamirms/tracesort/internal/tracefmt"
)

// MaxViolations caps how many violations a Report keeps.
const MaxViolations = 100

const maxLineLength = 1 << 20

// Kind classifies a violation.
type Kind uint8

const (
	KindFraming Kind = iota // header or histogram section missing
	KindFormat              // unparseable line
	KindMode                // record in the wrong stream
	KindOrder               // records not ascending by (size, timestamp)
	KindCount               // record count differs from expectation
	KindHistogramOrder      // histogram sizes not strictly ascending
	KindDistinct            // distinct size count differs
	KindHistogramSum        // histogram counts disagree with the records
)

// Violation is one failed check.
type Violation struct {
	Kind Kind
	Line int // 1-based; 0 when not tied to a line
	Msg  string
}

// Expect holds optional expectations. Negative values are not checked.
type Expect struct {
	Mode     byte // tracefmt.ModeRead or tracefmt.ModeWrite
	Records  int64
	Distinct int
}

// Digest is an order-independent fingerprint of a multiset of lines.
type Digest struct {
	Sum   uint64 // wrapping sum of xxh3 line hashes
	Lines uint64
}

func (d *Digest) add(line []byte) {
	d.Sum += xxh3.Hash(line)
	d.Lines++
}

// Report is the outcome of checking one output file.
type Report struct {
	Mode         byte
	Expect       Expect
	Records      uint64
	Distinct     int
	HistogramSum uint64
	Digest       Digest
	Checksum     uint64 // xxHash64 of the whole file
	Violations   []Violation
	Truncated    bool
}

// OK reports whether no check failed.
func (r *Report) OK() bool {
	return len(r.Violations) == 0 && !r.Truncated
}

func (r *Report) fail(kind Kind, line int, format string, args ...any) {
	if len(r.Violations) >= MaxViolations {
		r.Truncated = true
		return
	}
	r.Violations = append(r.Violations, Violation{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)})
}

func (r *Report) has(kinds ...Kind) bool {
	for _, v := range r.Violations {
		for _, k := range kinds {
			if v.Kind == k {
				return true
			}
		}
	}
	return false
}

// File checks the output stream at path.
func File(fs afero.Fs, path string, exp Expect) (*Report, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sum := xxhash.New()
	rep, err := Read(io.TeeReader(f, sum), exp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rep.Checksum = sum.Sum64()
	return rep, nil
}

// Read checks an output stream read from r. Read consumes r to EOF.
func Read(r io.Reader, exp Expect) (*Report, error) {
	rep := &Report{Mode: exp.Mode, Expect: exp}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineLength)

	const (
		inHeader = iota
		inRecords
		inHistogramHeader
		inHistogram
	)
	state := inHeader
	lineNo := 0
	var (
		prev      tracefmt.Entry
		sizes     = make(map[uint32]uint64)
		prevSize  uint32
		histRows  int
		histSizes = make(map[uint32]uint64)
	)

	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		switch state {
		case inHeader:
			if string(line) != tracefmt.Header {
				rep.fail(KindFraming, lineNo, "header is %q", line)
			}
			state = inRecords

		case inRecords:
			if len(line) == 0 {
				state = inHistogramHeader
				continue
			}
			e, err := tracefmt.ParseLine(line)
			if err != nil {
				rep.fail(KindFormat, lineNo, "%v", err)
				continue
			}
			rep.Records++
			rep.Digest.add(line)
			sizes[e.Size]++
			if e.Mode != exp.Mode {
				rep.fail(KindMode, lineNo, "Mode of entry %d is %c instead of %c", lineNo, e.Mode, exp.Mode)
			}
			if rep.Records > 1 && (e.Size < prev.Size || (e.Size == prev.Size && e.Timestamp < prev.Timestamp)) {
				rep.fail(KindOrder, lineNo, "Entry order violation detected at line %d", lineNo)
			}
			prev = e

		case inHistogramHeader:
			if string(line) != tracefmt.HistogramHeader {
				rep.fail(KindFraming, lineNo, "histogram header is %q", line)
			}
			state = inHistogram

		case inHistogram:
			size, count, err := tracefmt.ParseHistogramRow(line)
			if err != nil {
				rep.fail(KindFormat, lineNo, "%v", err)
				continue
			}
			if histRows > 0 && size <= prevSize {
				rep.fail(KindHistogramOrder, lineNo, "Size order violation detected at line %d", lineNo)
			}
			prevSize = size
			histRows++
			histSizes[size] += count
			rep.HistogramSum += count
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	switch state {
	case inHeader:
		rep.fail(KindFraming, 0, "file is empty")
	case inRecords, inHistogramHeader:
		rep.fail(KindFraming, 0, "histogram section missing")
	}

	rep.Distinct = histRows
	if exp.Records >= 0 && rep.Records != uint64(exp.Records) {
		rep.fail(KindCount, 0, "Number of entries is %d instead of %d", rep.Records, exp.Records)
	}
	if exp.Distinct >= 0 && histRows != exp.Distinct {
		rep.fail(KindDistinct, 0, "Number of different sizes is %d instead of %d", histRows, exp.Distinct)
	}
	if histRows != len(sizes) {
		rep.fail(KindDistinct, 0, "histogram has %d sizes, records have %d", histRows, len(sizes))
	}
	if rep.HistogramSum != rep.Records {
		rep.fail(KindHistogramSum, 0, "Sum of all analyzed counts is %d instead of %d", rep.HistogramSum, rep.Records)
	}
	for size, n := range sizes {
		if histSizes[size] != n {
			rep.fail(KindHistogramSum, 0, "size %d has %d records, histogram says %d", size, n, histSizes[size])
		}
	}
	return rep, nil
}

// Print writes the report in the classic checker layout: one line per check,
// a check mark when it passed.
func (r *Report) Print(w io.Writer) {
	m := r.Mode
	for _, v := range r.Violations {
		fmt.Fprintf(w, " %c: %s !\n", m, v.Msg)
	}
	if r.Truncated {
		fmt.Fprintf(w, " %c: more than %d violations, output truncated !\n", m, MaxViolations)
	}
	if !r.has(KindFraming, KindFormat, KindMode, KindOrder) {
		fmt.Fprintf(w, " %c: Traces have correct mode and in order √\n", m)
	}
	if !r.has(KindCount) {
		if r.Expect.Records >= 0 {
			fmt.Fprintf(w, " %c: Number of entries %d / %d √\n", m, r.Records, r.Expect.Records)
		} else {
			fmt.Fprintf(w, " %c: Number of entries %d √\n", m, r.Records)
		}
	}
	if !r.has(KindHistogramOrder) {
		fmt.Fprintf(w, " %c: Size-Count data is in ascending order √\n", m)
	}
	if !r.has(KindDistinct) {
		if r.Expect.Distinct >= 0 {
			fmt.Fprintf(w, " %c: Number of unique item sizes %d / %d √\n", m, r.Distinct, r.Expect.Distinct)
		} else {
			fmt.Fprintf(w, " %c: Number of unique item sizes %d √\n", m, r.Distinct)
		}
	}
	if !r.has(KindHistogramSum) {
		fmt.Fprintf(w, " %c: Sum of Size-Count %d / %d √\n", m, r.HistogramSum, r.Records)
	}
	if r.OK() {
		fmt.Fprintf(w, " %c:        * All tests passed. *\n", m)
	}
}
