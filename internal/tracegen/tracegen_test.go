package tracegen

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamirms/tracesort/internal/tracefmt"
)

func TestGenerateParses(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Records: 2000, Seed: 7, WritePercent: 30}
	require.NoError(t, Generate(&buf, 3, cfg))

	sc := bufio.NewScanner(&buf)
	require.True(t, sc.Scan())
	assert.Equal(t, tracefmt.Header, sc.Text())

	var (
		n, writes int
		shapes    [2]int
		prevTS    float64
	)
	for sc.Scan() {
		line := sc.Bytes()
		e, err := tracefmt.ParseLine(line)
		require.NoError(t, err, "line %q", line)
		assert.GreaterOrEqual(t, e.Timestamp, prevTS, "timestamps are non-decreasing")
		prevTS = e.Timestamp
		if e.Mode == tracefmt.ModeWrite {
			writes++
		}
		shapes[e.Shape]++
		n++
	}
	require.Equal(t, 2000, n)
	assert.InDelta(t, 600, writes, 150)
	assert.Positive(t, shapes[tracefmt.ShapeEmptyResponse])
	assert.Positive(t, shapes[tracefmt.ShapeWithResponse])
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := Config{Records: 100, Seed: 1, WritePercent: 50}
	var a, b, c bytes.Buffer
	require.NoError(t, Generate(&a, 0, cfg))
	require.NoError(t, Generate(&b, 0, cfg))
	require.NoError(t, Generate(&c, 1, cfg))
	assert.Equal(t, a.Bytes(), b.Bytes())
	assert.NotEqual(t, a.Bytes(), c.Bytes())
}

func TestWriteFilesCompressed(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteFiles(dir, Config{Files: 2, Records: 10, Compress: "gz"})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "trace-0000.csv.gz"), filepath.Join(dir, "trace-0001.csv.gz")}, paths)

	f, err := os.Open(paths[1])
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	var plain bytes.Buffer
	_, err = plain.ReadFrom(zr)
	require.NoError(t, err)

	var want bytes.Buffer
	require.NoError(t, Generate(&want, 1, Config{Files: 2, Records: 10}))
	assert.Equal(t, want.String(), plain.String())

	_, err = WriteFiles(dir, Config{Files: 1, Compress: "lz4"})
	require.Error(t, err)
}
