//go:build windows
// +build windows

package fsync

import (
	"os"
	"syscall"
)

// FlushFileBuffers cannot target a directory handle
const canFsyncDir = false

func Fsync(f *os.File) error {
	return syscall.FlushFileBuffers(syscall.Handle(f.Fd()))
}
