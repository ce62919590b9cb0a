//go:build linux

package tracesort

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves the blocks of an output file before it is mapped,
// so a full disk fails here instead of as SIGBUS inside a worker.
func fallocateFile(file *os.File, size int64) error {
	if err := unix.Fallocate(int(file.Fd()), 0, 0, size); err != nil {
		// NFS and some overlay filesystems reject fallocate.
		return unix.Ftruncate(int(file.Fd()), size)
	}
	return unix.Ftruncate(int(file.Fd()), size)
}
