package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	streamerrors "github.com/tamirms/tracesort/errors"
)

// SampleInterval is the iostat interval, in seconds, the samples are
// assumed to be taken at.
const SampleInterval = 10

// Sample is one iostat report: CPU user share and the first device's
// utilization and bandwidth.
type Sample struct {
	CPUUser   float64 // %user
	IOUtil    float64 // %util
	Bandwidth float64 // rkB/s + wkB/s
}

// Summary averages a run of samples.
type Summary struct {
	Samples   int
	CPUUser   float64
	IOUtil    float64
	Bandwidth float64
}

// ParseSamples reads `iostat -x` style output: blank-line separated blocks,
// where an "avg-cpu:" block carries CPU shares and a "Device" block carries
// one row per device. The first report describes the time since boot and is
// dropped.
func ParseSamples(r io.Reader) ([]Sample, error) {
	var (
		samples []Sample
		cur     Sample
		haveCPU bool
	)
	blocks, err := readBlocks(r)
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		head := strings.Fields(b[0])
		if len(head) == 0 {
			continue
		}
		switch {
		case head[0] == "avg-cpu:":
			if len(b) < 2 {
				return nil, fmt.Errorf("%w: avg-cpu block without values", streamerrors.ErrFormat)
			}
			v, err := column(head[1:], strings.Fields(b[1]), "%user")
			if err != nil {
				return nil, err
			}
			cur = Sample{CPUUser: v}
			haveCPU = true

		case strings.HasPrefix(head[0], "Device"):
			if !haveCPU {
				continue
			}
			if len(b) < 2 {
				return nil, fmt.Errorf("%w: device block without rows", streamerrors.ErrFormat)
			}
			row := strings.Fields(b[1])
			cols := head[1:]
			if len(row) > 0 {
				row = row[1:] // device name
			}
			util, err := column(cols, row, "%util")
			if err != nil {
				return nil, err
			}
			rkb, err := column(cols, row, "rkB/s")
			if err != nil {
				return nil, err
			}
			wkb, err := column(cols, row, "wkB/s")
			if err != nil {
				return nil, err
			}
			cur.IOUtil = util
			cur.Bandwidth = rkb + wkb
			samples = append(samples, cur)
			haveCPU = false
		}
	}
	if len(samples) > 0 {
		samples = samples[1:]
	}
	return samples, nil
}

// Summarize averages the first n samples (all of them when n <= 0 or n
// exceeds the count).
func Summarize(samples []Sample, n int) Summary {
	if n <= 0 || n > len(samples) {
		n = len(samples)
	}
	s := Summary{Samples: n}
	if n == 0 {
		return s
	}
	for _, smp := range samples[:n] {
		s.CPUUser += smp.CPUUser
		s.IOUtil += smp.IOUtil
		s.Bandwidth += smp.Bandwidth
	}
	s.CPUUser /= float64(n)
	s.IOUtil /= float64(n)
	s.Bandwidth /= float64(n)
	return s
}

// SamplesFor returns how many samples cover a run of the given length.
func SamplesFor(totalSeconds float64) int {
	return int(totalSeconds / SampleInterval)
}

func readBlocks(r io.Reader) ([][]string, error) {
	var (
		blocks [][]string
		cur    []string
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks, nil
}

func column(names, values []string, want string) (float64, error) {
	for i, n := range names {
		if n != want {
			continue
		}
		if i >= len(values) {
			return 0, fmt.Errorf("%w: no value for column %s", streamerrors.ErrFormat, want)
		}
		v, err := strconv.ParseFloat(values[i], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: column %s: %w", streamerrors.ErrFormat, want, err)
		}
		return v, nil
	}
	return 0, fmt.Errorf("%w: column %s not found", streamerrors.ErrFormat, want)
}
