// Package tracegen writes deterministic synthetic trace files for local runs,
// benchmarks and tests. Every field is derived from a murmur3 hash of the
// (seed, file, record) triple, so the same Config always yields the same bytes.
package tracegen

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spaolacci/murmur3"

	"github.com/tamirms/tracesort/internal/tracefmt"
)

// DefaultStart is the first timestamp of every file. Any value in
// [1e9, 1e10) keeps timestamps at the fixed 20-character width.
const DefaultStart = 1455235200.0

// commonSizes dominate real block traces.
var commonSizes = []uint32{512, 1024, 4096, 8192, 16384, 32768, 65536, 131072}

// Config describes a synthetic trace set.
type Config struct {
	Files   int
	Records int // per file
	Seed    uint32
	// WritePercent is the share of write records, 0-100.
	WritePercent int
	Start        float64
	// Compress is "", "gz" or "zst".
	Compress string
}

func (c Config) start() float64 {
	if c.Start == 0 {
		return DefaultStart
	}
	return c.Start
}

// Generate writes file number file of the set to w.
func Generate(w io.Writer, file int, cfg Config) error {
	bw := bufio.NewWriterSize(w, 1<<16)
	if _, err := bw.WriteString(tracefmt.Header + "\n"); err != nil {
		return err
	}

	var key [8]byte
	line := make([]byte, 0, 64)
	ts := cfg.start()
	for i := range cfg.Records {
		binary.LittleEndian.PutUint64(key[:], uint64(file)<<32|uint64(i))
		h1, h2 := murmur3.Sum128WithSeed(key[:], cfg.Seed)

		ts += float64(h1%1000) * 1e-6
		mode := byte(tracefmt.ModeRead)
		if int((h1>>10)%100) < cfg.WritePercent {
			mode = tracefmt.ModeWrite
		}
		size := commonSizes[h2%uint64(len(commonSizes))]
		if (h2>>8)%16 == 0 {
			size = 512 * uint32(1+(h2>>16)%64)
		}

		line = strconv.AppendFloat(line[:0], ts, 'f', 9, 64)
		line = append(line, ',')
		if (h2>>40)&1 == 1 {
			line = strconv.AppendFloat(line, float64((h1>>40)%100000)/1e6, 'f', 6, 64)
		}
		line = append(line, ',', mode, ',')
		line = strconv.AppendUint(line, (h2>>32)%8, 10)
		line = append(line, ',')
		line = strconv.AppendUint(line, ((h1>>20)%(1<<28))*512, 10)
		line = append(line, ',')
		line = strconv.AppendUint(line, uint64(size), 10)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FileName returns the name of file number i.
func FileName(i int, compress string) string {
	name := fmt.Sprintf("trace-%04d.csv", i)
	if compress != "" {
		name += "." + compress
	}
	return name
}

// WriteFiles writes the whole set into dir and returns the paths in order.
func WriteFiles(dir string, cfg Config) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, cfg.Files)
	for i := range paths {
		paths[i] = filepath.Join(dir, FileName(i, cfg.Compress))
		if err := writeFile(paths[i], i, cfg); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func writeFile(path string, i int, cfg Config) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.WriteCloser
	switch cfg.Compress {
	case "":
		return Generate(f, i, cfg)
	case "gz":
		w = gzip.NewWriter(f)
	case "zst":
		if w, err = zstd.NewWriter(f); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown compression %q", cfg.Compress)
	}
	if err := Generate(w, i, cfg); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
