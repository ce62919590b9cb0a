//go:build darwin

package tracesort

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves the blocks of an output file before it is mapped.
// F_PREALLOCATE only reserves space; the size is set by Ftruncate.
func fallocateFile(file *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  size,
	}
	if err := unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst); err != nil {
		return unix.Ftruncate(int(file.Fd()), size)
	}
	return unix.Ftruncate(int(file.Fd()), size)
}
