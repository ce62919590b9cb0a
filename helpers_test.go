package tracesort

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tamirms/tracesort/internal/tracefmt"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns a deterministic RNG seeded from the test name.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// writeTrace writes a trace file with the standard header followed by lines.
func writeTrace(t testing.TB, dir, name string, lines ...string) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(tracefmt.Header)
	buf.WriteByte('\n')
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// sizePool is small enough that random traces have plenty of size ties.
var sizePool = []uint32{0, 512, 1024, 4096, 8192, 65536}

// randomLines generates n trace lines in both shapes with fixed-width
// timestamps. Some timestamps repeat on purpose.
func randomLines(rng *rand.Rand, n int) []string {
	lines := make([]string, n)
	for i := range lines {
		ts := 1455235200 + float64(rng.IntN(1000))/8
		mode := "R"
		if rng.IntN(2) == 1 {
			mode = "W"
		}
		size := sizePool[rng.IntN(len(sizePool))]
		resp := ""
		if rng.IntN(2) == 1 {
			resp = fmt.Sprintf("%.6f", rng.Float64())
		}
		lines[i] = fmt.Sprintf("%020.9f,%s,%s,%d,%d,%d", ts, resp, mode, rng.IntN(8), rng.Uint32(), size)
	}
	return lines
}

// writeRandomTraces writes numFiles random trace files and returns their paths.
func writeRandomTraces(t testing.TB, rng *rand.Rand, dir string, numFiles, linesPerFile int) []string {
	t.Helper()
	paths := make([]string, numFiles)
	for i := range paths {
		paths[i] = writeTrace(t, dir, fmt.Sprintf("trace-%03d.csv", i), randomLines(rng, linesPerFile)...)
	}
	return paths
}

// parsedOutput is an output file split into its sections.
type parsedOutput struct {
	records   []string
	histogram []string
}

// readOutput reads an output file and checks its framing.
func readOutput(t testing.TB, path string) parsedOutput {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.HasPrefix(text, tracefmt.Header+"\n") {
		t.Fatalf("%s: missing header", path)
	}
	body, trailer, ok := strings.Cut(text[tracefmt.HeaderLen:], "\n"+tracefmt.HistogramHeader+"\n")
	if !ok {
		t.Fatalf("%s: missing histogram section", path)
	}
	var out parsedOutput
	if body != "" {
		out.records = strings.Split(strings.TrimSuffix(body, "\n"), "\n")
	}
	if trailer != "" {
		out.histogram = strings.Split(strings.TrimSuffix(trailer, "\n"), "\n")
	}
	return out
}

// mustParse parses a record line or fails the test.
func mustParse(t testing.TB, line string) tracefmt.Entry {
	t.Helper()
	e, err := tracefmt.ParseLine([]byte(line))
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	return e
}

// openTestSources opens paths and closes them when the test ends.
func openTestSources(t testing.TB, paths []string) *SourceSet {
	t.Helper()
	set, err := OpenSources(paths)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { set.Close() })
	return set
}
