package store

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// fileLock is an exclusive advisory lock on a sidecar file next to the database.
type fileLock struct {
	f *os.File
}

// acquireLock blocks until it holds "<dbPath>.<purpose>.lock".
func acquireLock(dbPath, purpose string) (*fileLock, error) {
	lockPath := fmt.Sprintf("%s.%s.lock", dbPath, purpose)
	if dir := filepath.Dir(lockPath); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644) //nolint:gosec // G304: lockPath derived from trusted dbPath
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	return &fileLock{f: f}, nil
}

// Release unlocks and closes the lock file. Nil-safe.
func (l *fileLock) Release() {
	if l == nil || l.f == nil {
		return
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	_ = l.f.Close()
	l.f = nil
}
