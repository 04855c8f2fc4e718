package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// fileLock serializes history writers across processes.
type fileLock struct {
	path  string
	flock *flock.Flock
}

func newFileLock(dir string) *fileLock {
	path := filepath.Join(dir, "history.lock")
	return &fileLock{path: path, flock: flock.New(path)}
}

// lock blocks until the lock is held or ctx is done.
func (l *fileLock) lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	ok, err := l.flock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock %s not acquired", l.path)
	}
	return nil
}

func (l *fileLock) unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
