// Package runlock guards import batches against concurrent runs across
// processes with an advisory file lock.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"auditimport/internal/letters"
)

// Lock is a non-blocking advisory lock on a file.
type Lock struct {
	path string
	lock *flock.Flock
}

// New prepares a lock at path. The file is created on first acquire.
func New(path string) *Lock {
	return &Lock{path: path, lock: flock.New(path)}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without waiting. A lock held elsewhere yields an
// error wrapping letters.ErrBatchInProgress.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", letters.ErrBatchInProgress, l.path)
	}
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if !l.lock.Locked() {
		return nil
	}
	return l.lock.Unlock()
}

// With runs fn while holding the lock at path.
func With(path string, fn func() error) error {
	l := New(path)
	if err := l.Acquire(); err != nil {
		return err
	}
	defer func() { _ = l.Release() }()
	return fn()
}
