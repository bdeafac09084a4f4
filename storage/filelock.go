package storage

import (
	"os"
	"time"
)

// lockPollInterval is how often an acquisition attempt retries while another
// process holds the lock.
const lockPollInterval = 10 * time.Millisecond

// fileLock guards the state file against concurrent runs. The lock is
// advisory and lives in a sibling ".lock" file next to the state file.
type fileLock struct {
	path string
	file *os.File
}

func newFileLock(statePath string) *fileLock {
	return &fileLock{path: statePath + ".lock"}
}

// Lock acquires the lock, polling until timeout. Returns ErrLockTimeout
// (wrapped with the lock path) when another process keeps it held.
func (l *fileLock) Lock(timeout time.Duration) error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return &StorageError{Op: "lock", Entity: "store", ID: l.path, Err: err}
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := acquireLock(file); err == nil {
			l.file = file
			return nil
		}
		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(lockPollInterval)
	}

	file.Close()
	return &StorageError{Op: "lock", Entity: "store", ID: l.path, Err: ErrLockTimeout}
}

// Unlock releases the lock and removes the lock file. Safe to call when the
// lock was never acquired.
func (l *fileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	releaseLock(l.file)
	l.file.Close()
	os.Remove(l.path)
	l.file = nil
	return nil
}
