//go:build !windows

package storage

import (
	"os"
	"syscall"
)

// acquireLock takes the flock(2) exclusive lock without blocking.
func acquireLock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func releaseLock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
