//go:build linux

package tracesort

import "golang.org/x/sys/unix"

// fadviseSequential marks a source handle for the scan and extraction passes.
// Best-effort.
func fadviseSequential(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}

// fadviseRandom marks a writer's private source handle, which is read in
// sorted order and therefore jumps across the file.
func fadviseRandom(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_RANDOM)
}
