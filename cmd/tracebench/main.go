// Tracebench measures tracesort throughput and memory on a synthetic trace set.
//
// Usage:
//
//	go run ./cmd/tracebench -n 16 -r 1000000 -w 8
//
// Flags:
//
//	-n, --files       Number of source files (default: 8)
//	-r, --records     Records per file (default: 1,000,000)
//	-w, --workers     Worker count, 0 for one per CPU (default: 0)
//	--dir             Working directory (default: a fresh temp dir)
//	--cpuprofile      Write a CPU profile of the run
//	--memprofile      Write a heap profile after the run
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/tamirms/tracesort"
	"github.com/tamirms/tracesort/internal/tracegen"
)

// getMaxRSS returns the peak resident set size in bytes.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// Linux reports kilobytes, macOS bytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// peakSampler tracks peak heap and RSS every 10ms. runtime/metrics avoids
// the stop-the-world pause of ReadMemStats.
type peakSampler struct {
	heap atomic.Uint64
	rss  atomic.Uint64
	done chan struct{}
}

func startSampler(baseHeap, baseRSS uint64) *peakSampler {
	s := &peakSampler{done: make(chan struct{})}
	s.heap.Store(baseHeap)
	s.rss.Store(baseRSS)
	go func() {
		samples := []metrics.Sample{{Name: "/memory/classes/heap/objects:bytes"}}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&s.heap, samples[0].Value.Uint64())
				storeMax(&s.rss, getMaxRSS())
			}
		}
	}()
	return s
}

func (s *peakSampler) stop() {
	close(s.done)
	var final runtime.MemStats
	runtime.ReadMemStats(&final)
	storeMax(&s.heap, final.Alloc)
	storeMax(&s.rss, getMaxRSS())
}

func storeMax(v *atomic.Uint64, x uint64) {
	for {
		old := v.Load()
		if x <= old || v.CompareAndSwap(old, x) {
			return
		}
	}
}

func main() {
	files := pflag.IntP("files", "n", 8, "number of source files")
	records := pflag.IntP("records", "r", 1_000_000, "records per file")
	workers := pflag.IntP("workers", "w", 0, "worker count (0 = one per CPU)")
	dirFlag := pflag.String("dir", "", "working directory (default: temp dir)")
	cpuprofile := pflag.String("cpuprofile", "", "write cpu profile to file")
	memprofile := pflag.String("memprofile", "", "write memory profile to file")
	pflag.Parse()

	dir := *dirFlag
	if dir == "" {
		tmp, err := os.MkdirTemp("", "tracebench-")
		if err != nil {
			fmt.Printf("Failed to create temp dir: %v\n", err)
			return
		}
		defer func() { _ = os.RemoveAll(tmp) }()
		dir = tmp
	}

	fmt.Println("Generating traces...")
	genStart := time.Now()
	paths, err := tracegen.WriteFiles(filepath.Join(dir, "in"), tracegen.Config{
		Files:        *files,
		Records:      *records,
		Seed:         0x1234,
		WritePercent: 30,
	})
	if err != nil {
		fmt.Printf("Generation failed: %v\n", err)
		return
	}
	genDuration := time.Since(genStart)

	var inputBytes int64
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			inputBytes += info.Size()
		}
	}

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := getMaxRSS()
	sampler := startSampler(baseline.Alloc, baselineRSS)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
	}

	fmt.Println("Sorting traces...")
	runStart := time.Now()
	eng, err := tracesort.New(paths, filepath.Join(dir, "out"),
		tracesort.WithWorkers(*workers),
		tracesort.WithProgress(os.Stdout))
	if err != nil {
		fmt.Printf("New failed: %v\n", err)
		return
	}
	res, err := eng.Run(context.Background())
	runDuration := time.Since(runStart)

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Printf("could not create memory profile: %v\n", err)
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Printf("could not write memory profile: %v\n", err)
			}
			_ = f.Close()
		}
	}
	sampler.stop()

	if err != nil {
		fmt.Printf("Run failed: %v\n", err)
		return
	}

	total := res.Streams[tracesort.Reads].Records + res.Streams[tracesort.Writes].Records
	peakHeap := sampler.heap.Load() - baseline.Alloc
	peakRSS := sampler.rss.Load() - baselineRSS

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦════════════════╗\n")
	fmt.Printf("║ Workers: %-11d║ Files: %-8d║\n", res.Workers, *files)
	fmt.Printf("╠═════════════════════╬════════════════╣\n")
	fmt.Printf("║ Records             ║ %10d     ║\n", total)
	fmt.Printf("║   - Reads           ║ %10d     ║\n", res.Streams[tracesort.Reads].Records)
	fmt.Printf("║   - Writes          ║ %10d     ║\n", res.Streams[tracesort.Writes].Records)
	fmt.Printf("║ Input size          ║ %8.1f MB    ║\n", float64(inputBytes)/1_000_000)
	fmt.Printf("║ Generate time       ║ %6.2f sec     ║\n", genDuration.Seconds())
	for _, p := range res.Phases {
		fmt.Printf("║ %-19s ║ %6.2f sec     ║\n", p.Name, p.Duration.Seconds())
	}
	fmt.Printf("║ Total run time      ║ %6.2f sec     ║\n", runDuration.Seconds())
	fmt.Printf("║ Throughput          ║ %6.2f M/sec   ║\n", float64(total)/runDuration.Seconds()/1_000_000)
	fmt.Printf("║ Bandwidth           ║ %6.1f MB/sec  ║\n", float64(inputBytes)/runDuration.Seconds()/1_000_000)
	fmt.Printf("║ Peak heap memory    ║ %6.1f MB      ║\n", float64(peakHeap)/1_000_000)
	fmt.Printf("║ Peak RSS memory     ║ %6.1f MB      ║\n", float64(peakRSS)/1_000_000)
	fmt.Printf("║ R.csv checksum      ║ %016x ║\n", res.Streams[tracesort.Reads].Checksum)
	fmt.Printf("║ W.csv checksum      ║ %016x ║\n", res.Streams[tracesort.Writes].Checksum)
	fmt.Printf("╚═════════════════════╩════════════════╝\n")
}
