package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

// DefaultSweepMinAge keeps the sweeper away from trees that were just created.
const DefaultSweepMinAge = 10 * time.Minute

// Sweeper removes temporary trees left behind by processes that died before
// releasing them.
type Sweeper interface {
	// Sweep deletes every reserved tree under base that is older than minAge
	// and whose slot lock is free. It returns the removed roots.
	Sweep(ctx context.Context, base m.Path, minAge time.Duration) ([]m.Path, error)
}

type sweeper struct {
	fs     adapter.SourceFSAdapter
	locker adapter.SlotLocker
	now    func() time.Time
}

// NewSweeper constructs a Sweeper.
func NewSweeper(fs adapter.SourceFSAdapter, locker adapter.SlotLocker) Sweeper {
	return &sweeper{fs: fs, locker: locker, now: time.Now}
}

func (s *sweeper) Sweep(ctx context.Context, base m.Path, minAge time.Duration) ([]m.Path, error) {
	entries, err := s.fs.ReadDir(ctx, base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", base, err)
	}

	present := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		present[entry.Name()] = struct{}{}
	}

	var removed []m.Path

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		name := entry.Name()

		switch {
		case entry.IsDir() && IsReservedName(name):
			if s.now().Sub(entry.ModTime()) < minAge {
				continue
			}

			root := s.fs.JoinPath(ctx, string(base), name)
			if s.sweepSlot(ctx, root) {
				removed = append(removed, root)
			}
		case strings.HasSuffix(name, lockSuffix) && IsReservedName(strings.TrimSuffix(name, lockSuffix)):
			// Lock file whose directory is already gone.
			if _, ok := present[strings.TrimSuffix(name, lockSuffix)]; ok {
				continue
			}

			s.sweepLock(ctx, s.fs.JoinPath(ctx, string(base), name))
		}
	}

	slog.InfoContext(ctx, "Sweep completed", "base", base, "removed", len(removed))

	return removed, nil
}

func (s *sweeper) sweepSlot(ctx context.Context, root m.Path) bool {
	lockPath := root + lockSuffix

	lock, acquired, err := s.locker.TryLock(ctx, lockPath)
	if err != nil {
		slog.WarnContext(ctx, "Cannot check temporary slot", "root", root, "error", err)
		return false
	}

	if !acquired {
		slog.DebugContext(ctx, "Temporary slot is live", "root", root)
		return false
	}

	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.WarnContext(ctx, "Failed to unlock temporary slot", "lock", lockPath, "error", err)
		}
	}()

	if err := s.fs.RemoveAll(ctx, root); err != nil {
		slog.ErrorContext(ctx, "Failed to sweep temp dir", "root", root, "error", fmt.Errorf("%w: %w", m.ErrCleanup, err))
		return false
	}

	if err := s.fs.Remove(ctx, lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.WarnContext(ctx, "Failed to remove lock file", "lock", lockPath, "error", err)
	}

	slog.DebugContext(ctx, "Swept orphaned temp dir", "root", root)

	return true
}

func (s *sweeper) sweepLock(ctx context.Context, lockPath m.Path) {
	lock, acquired, err := s.locker.TryLock(ctx, lockPath)
	if err != nil || !acquired {
		return
	}

	if err := s.fs.Remove(ctx, lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.WarnContext(ctx, "Failed to remove lock file", "lock", lockPath, "error", err)
	}

	if err := lock.Unlock(); err != nil {
		slog.WarnContext(ctx, "Failed to unlock stale lock", "lock", lockPath, "error", err)
	}
}
