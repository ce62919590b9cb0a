// Package report turns the artifacts of benchmark runs (the engine's phase
// timing lines and iostat samples captured alongside) into a side-by-side
// comparison table.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	streamerrors "github.com/tamirms/tracesort/errors"
)

const (
	finishedMarker = "...finished. Takes "
	secsSuffix     = " secs."
)

// Timings holds the phase durations of one run, in the order they were read.
type Timings struct {
	Names   []string
	Seconds []float64
}

// Get returns the seconds recorded for a phase.
func (t *Timings) Get(name string) (float64, bool) {
	for i, n := range t.Names {
		if n == name {
			return t.Seconds[i], true
		}
	}
	return 0, false
}

// Total is the sum of all recorded phases.
func (t *Timings) Total() float64 {
	var sum float64
	for _, s := range t.Seconds {
		sum += s
	}
	return sum
}

// Duration converts Total to a time.Duration.
func (t *Timings) Duration() time.Duration {
	return time.Duration(t.Total() * float64(time.Second))
}

// Require fails with ErrMissingPhase naming the first phase not recorded.
func (t *Timings) Require(names ...string) error {
	for _, n := range names {
		if _, ok := t.Get(n); !ok {
			return fmt.Errorf("%w: %q", streamerrors.ErrMissingPhase, n)
		}
	}
	return nil
}

// ParseTimings reads phase lines such as
//
//	 Collecting statistics...finished. Takes  0.0123456 secs.
//
// Other lines are ignored. A phase seen twice keeps its last value.
func ParseTimings(r io.Reader) (*Timings, error) {
	t := &Timings{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		name, rest, ok := strings.Cut(line, finishedMarker)
		if !ok {
			continue
		}
		value, ok := strings.CutSuffix(strings.TrimSpace(rest), secsSuffix)
		if !ok {
			return nil, fmt.Errorf("%w: timing line %q", streamerrors.ErrFormat, line)
		}
		secs, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: timing line %q: %w", streamerrors.ErrFormat, line, err)
		}
		name = strings.TrimSpace(name)
		if i := indexOf(t.Names, name); i >= 0 {
			t.Seconds[i] = secs
			continue
		}
		t.Names = append(t.Names, name)
		t.Seconds = append(t.Seconds, secs)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
