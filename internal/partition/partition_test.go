package partition

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

func TestRangeExamples(t *testing.T) {
	tests := []struct {
		name       string
		n, workers int
		want       [][2]int
	}{
		{"even", 8, 4, [][2]int{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{"remainder_to_last", 10, 3, [][2]int{{0, 3}, {3, 6}, {6, 10}}},
		{"single_worker", 7, 1, [][2]int{{0, 7}}},
		{"more_workers_than_items", 2, 4, [][2]int{{0, 0}, {0, 0}, {0, 0}, {0, 2}}},
		{"empty", 0, 3, [][2]int{{0, 0}, {0, 0}, {0, 0}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for w, want := range tc.want {
				start, end := Range(tc.n, tc.workers, w)
				if start != want[0] || end != want[1] {
					t.Fatalf("Range(%d, %d, %d) = [%d, %d), want [%d, %d)",
						tc.n, tc.workers, w, start, end, want[0], want[1])
				}
			}
		})
	}
}

// TestRangeCoversDisjoint verifies that worker ranges tile [0, n) exactly.
func TestRangeCoversDisjoint(t *testing.T) {
	rng := newTestRNG(t)
	for i := 0; i < 1000; i++ {
		n := rng.IntN(10000)
		workers := rng.IntN(64) + 1

		next := 0
		for w := range workers {
			start, end := Range(n, workers, w)
			if start != next {
				t.Fatalf("iter %d: worker %d starts at %d, want %d (n=%d, workers=%d)",
					i, w, start, next, n, workers)
			}
			if end < start {
				t.Fatalf("iter %d: worker %d has inverted range [%d, %d)", i, w, start, end)
			}
			next = end
		}
		if next != n {
			t.Fatalf("iter %d: ranges end at %d, want %d", i, next, n)
		}
	}
}

func TestPrefixSums(t *testing.T) {
	got := PrefixSums([]uint64{3, 0, 5, 2}, 1)
	want := []uint64{1, 4, 4, 9, 11}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("PrefixSums[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if empty := PrefixSums(nil, 7); len(empty) != 1 || empty[0] != 7 {
		t.Fatalf("PrefixSums(nil, 7) = %v, want [7]", empty)
	}
}
