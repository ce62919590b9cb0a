//go:build linux

package tracesort

import "golang.org/x/sys/unix"

// MADV_POPULATE_WRITE, Linux 5.14+. Older kernels return EINVAL.
const madvPopulateWrite = 23

// prefaultRegion populates the pages of a freshly mapped output so the
// writer workers do not serialize on page faults.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}
