//go:build unix

// Package lockfile provides a filesystem-based advisory lock for the
// single-node embedded deployment (spec §4.10/§5: "only one queue
// processor executes at a time per store"), as an alternative to the
// DB-row TTL lock the networked deployment uses. Ported directly from
// steveyegge-beads/internal/lockfile/lock_unix.go's flock(2) wrapper
// (golang.org/x/sys/unix.Flock with LOCK_EX|LOCK_NB), generalized from
// the teacher's single daemon-lock file to a named lock so a store can
// host more than one logical queue.
package lockfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrHeld is returned by TryLock when another process currently holds
// the named lock.
var ErrHeld = errors.New("lockfile: lock already held by another process")

// Lock is one acquired advisory file lock. Release is idempotent.
type Lock struct {
	f *os.File
}

// TryLock attempts a non-blocking exclusive lock on path, creating it if
// necessary. Returns ErrHeld if another process holds it.
func TryLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("lockfile: flock %s: %w", path, err)
	}
	return &Lock{f: f}, nil
}

// Release unlocks and closes the underlying file descriptor. Safe to call
// more than once.
func (l *Lock) Release() error {
	if l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return fmt.Errorf("lockfile: unlock: %w", err)
	}
	return closeErr
}
