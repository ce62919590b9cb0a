//go:build !linux

package tracesort

func fadviseSequential(fd int, offset, length int64) {}

func fadviseRandom(fd int, offset, length int64) {}
