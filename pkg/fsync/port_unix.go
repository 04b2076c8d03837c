//go:build !windows
// +build !windows

package fsync

import (
	"os"
	"syscall"
)

// directories can be fsynced through a regular open handle
const canFsyncDir = true

func Fsync(f *os.File) error {
	return syscall.Fsync(int(f.Fd()))
}
