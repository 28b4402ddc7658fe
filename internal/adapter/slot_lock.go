package adapter

import (
	"context"
	"fmt"

	"github.com/gofrs/flock"

	m "github.com/kazie/pylint-pycharm/internal/model"
)

// SlotLock is a held lock on a temporary directory slot.
type SlotLock interface {
	Unlock() error
}

// SlotLocker claims lock files that mark temporary directories as live. A lock
// held by one process (or one ScannableFile) keeps orphan sweeps away from
// the directory it guards.
type SlotLocker interface {
	// TryLock attempts to take the lock at path without blocking. It returns
	// false when another holder owns the lock.
	TryLock(ctx context.Context, path m.Path) (SlotLock, bool, error)
}

// FlockSlotLocker implements SlotLocker with advisory file locks.
type FlockSlotLocker struct{}

// NewFlockSlotLocker constructs a FlockSlotLocker.
func NewFlockSlotLocker() *FlockSlotLocker {
	return &FlockSlotLocker{}
}

// TryLock attempts an exclusive, non-blocking lock on path.
func (l *FlockSlotLocker) TryLock(ctx context.Context, path m.Path) (SlotLock, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	fl := flock.New(string(path))

	acquired, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("failed to try lock on %s: %w", path, err)
	}

	if !acquired {
		return nil, false, nil
	}

	return &flockSlotLock{flock: fl}, true, nil
}

type flockSlotLock struct {
	flock *flock.Flock
}

func (l *flockSlotLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.flock.Path(), err)
	}

	return nil
}
