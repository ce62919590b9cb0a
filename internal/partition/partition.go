// Package partition provides the index arithmetic that lets workers own
// disjoint ranges of files, slots and records without coordination.
package partition

// Range returns the half-open range [start, end) of n items owned by worker w
// out of workers. Every worker except the last gets n/workers items; the last
// worker absorbs the remainder. Ranges of distinct workers never overlap and
// together cover [0, n).
func Range(n, workers, w int) (start, end int) {
	if workers <= 0 {
		return 0, n
	}
	workload := n / workers
	start = w * workload
	if w == workers-1 {
		return start, n
	}
	return start, start + workload
}

// PrefixSums returns out where out[i] = base + counts[0] + ... + counts[i-1].
// out has len(counts)+1 entries; the last one is base plus the total.
func PrefixSums(counts []uint64, base uint64) []uint64 {
	out := make([]uint64, len(counts)+1)
	out[0] = base
	for i, c := range counts {
		out[i+1] = out[i] + c
	}
	return out
}
