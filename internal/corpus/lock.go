package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
)

// DataLock is an exclusive cross-process lock on a data directory, so two
// invocations never interleave writes to the same artifacts.
type DataLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDataLock creates the lock for dataDir. The lock file is <dataDir>/.gutenindex.lock.
func NewDataLock(dataDir string) *DataLock {
	lockPath := NewLayout(dataDir).LockPath()
	return &DataLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Acquire takes the lock without blocking. A lock held by another process is
// reported as ErrCodeLockHeld.
func (l *DataLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return gerrors.New(gerrors.ErrCodeWriteFailed, "create data directory", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return gerrors.New(gerrors.ErrCodeFilePermission, fmt.Sprintf("lock %s", l.path), err)
	}
	if !acquired {
		return gerrors.New(gerrors.ErrCodeLockHeld, "another gutenindex process is using this data directory", nil).
			WithDetail("lock", l.path).
			WithSuggestion("wait for the other run to finish")
	}

	l.locked = true
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *DataLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DataLock) Path() string {
	return l.path
}

// IsLocked reports whether this process holds the lock.
func (l *DataLock) IsLocked() bool {
	return l.locked
}
