package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

const lockSuffix = ".lock"

// Materializer turns editor documents into real files an external tool can
// read, and deletes whatever it created once the tool is done.
type Materializer interface {
	// Materialize returns a ScannableFile for doc. Failures are
	// *model.MaterializeError values; nothing is retried.
	Materialize(ctx context.Context, project m.Project, doc m.Document) (*ScannableFile, error)

	// Release deletes the temporary tree owned by file, if any. Idempotent and
	// safe to call with nil.
	Release(ctx context.Context, file *ScannableFile)
}

type materializer struct {
	fs       adapter.SourceFSAdapter
	locker   adapter.SlotLocker
	namer    *SlotNamer
	mirror   *PathMirror
	writer   *ContentWriter
	registry *Registry
	tempBase m.Path
}

// MaterializerOption configures a Materializer.
type MaterializerOption func(*materializer)

// WithTempBase sets the directory that receives csi-NNN trees. Defaults to
// os.TempDir().
func WithTempBase(base m.Path) MaterializerOption {
	return func(mt *materializer) {
		if base != "" {
			mt.tempBase = base
		}
	}
}

// WithNamer replaces the process-wide slot namer.
func WithNamer(namer *SlotNamer) MaterializerOption {
	return func(mt *materializer) {
		mt.namer = namer
	}
}

// WithRegistry sets the registry that tracks live temporary trees.
func WithRegistry(registry *Registry) MaterializerOption {
	return func(mt *materializer) {
		mt.registry = registry
	}
}

// NewMaterializer constructs a Materializer backed by the provided
// filesystem adapter and slot locker.
func NewMaterializer(fs adapter.SourceFSAdapter, locker adapter.SlotLocker, opts ...MaterializerOption) Materializer {
	mt := &materializer{
		fs:       fs,
		locker:   locker,
		namer:    defaultNamer,
		mirror:   NewPathMirror(fs),
		writer:   NewContentWriter(fs),
		registry: DefaultRegistry,
		tempBase: m.Path(os.TempDir()),
	}

	for _, opt := range opts {
		opt(mt)
	}

	return mt
}

func (mt *materializer) Materialize(ctx context.Context, project m.Project, doc m.Document) (*ScannableFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := validateName(doc.Name); err != nil {
		return nil, m.NewMaterializeError(doc, m.ErrAcquisition, err)
	}

	switch origin := doc.Origin.(type) {
	case m.DiskOrigin:
		if origin.Path == "" {
			return nil, m.NewMaterializeError(doc, m.ErrAcquisition, errors.New("backing file has no path"))
		}

		if !origin.Unsaved && mt.existsOnDisk(ctx, origin.Path) {
			slog.DebugContext(ctx, "Using backing file directly", "document", doc.ID())
			return &ScannableFile{doc: doc, realPath: origin.Path}, nil
		}
	case m.MemoryOrigin:
	default:
		return nil, m.NewMaterializeError(doc, m.ErrAcquisition, fmt.Errorf("unknown origin %T", origin))
	}

	return mt.materializeTemporary(ctx, project, doc)
}

func (mt *materializer) Release(ctx context.Context, file *ScannableFile) {
	file.Release(ctx)
}

func (mt *materializer) materializeTemporary(ctx context.Context, project m.Project, doc m.Document) (*ScannableFile, error) {
	file, err := mt.acquireRoot(ctx, doc)
	if err != nil {
		return nil, err
	}

	dir, err := mt.mirror.Mirror(ctx, project, doc, file.tempRoot)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to create mirrored directory", "document", doc.ID(), "error", err)
		file.Release(ctx)

		return nil, m.NewMaterializeError(doc, m.ErrDirectoryCreation, err)
	}

	file.realPath = mt.fs.JoinPath(ctx, string(dir), doc.Name)

	if err := mt.writer.Write(ctx, project, doc, file.realPath); err != nil {
		slog.ErrorContext(ctx, "Failed to write temporary file", "document", doc.ID(), "path", file.realPath, "error", err)
		file.Release(ctx)

		return nil, m.NewMaterializeError(doc, m.ErrWrite, err)
	}

	slog.DebugContext(ctx, "Materialized temporary file", "document", doc.ID(), "path", file.realPath)

	return file, nil
}

// acquireRoot claims a free csi-NNN directory under the temp base. A slot is
// free when its lock can be taken and its directory can be created
// exclusively. Busy slots are skipped; after probing the whole range once the
// claim fails with ErrSlotsExhausted.
func (mt *materializer) acquireRoot(ctx context.Context, doc m.Document) (*ScannableFile, error) {
	if err := mt.fs.MkdirAll(ctx, mt.tempBase, dirPerm); err != nil {
		return nil, m.NewMaterializeError(doc, m.ErrDirectoryCreation, err)
	}

	for range SlotCount {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		root := mt.fs.JoinPath(ctx, string(mt.tempBase), mt.namer.Next())
		lockPath := root + lockSuffix
		_, statErr := mt.fs.FileInfo(ctx, lockPath)
		lockIsNew := errors.Is(statErr, os.ErrNotExist)

		lock, acquired, err := mt.locker.TryLock(ctx, lockPath)
		if err != nil {
			return nil, m.NewMaterializeError(doc, m.ErrDirectoryCreation, err)
		}

		if !acquired {
			slog.DebugContext(ctx, "Temporary slot locked, trying next", "root", root)
			continue
		}

		err = mt.fs.Mkdir(ctx, root, dirPerm)
		if err == nil {
			file := &ScannableFile{doc: doc, tempRoot: root, lockPath: lockPath, lock: lock, owner: mt}
			mt.registry.add(file)

			return file, nil
		}

		if lockIsNew && errors.Is(err, os.ErrExist) {
			if rmErr := mt.fs.Remove(ctx, lockPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				slog.WarnContext(ctx, "Failed to remove lock file", "lock", lockPath, "error", rmErr)
			}
		}

		if unlockErr := lock.Unlock(); unlockErr != nil {
			slog.WarnContext(ctx, "Failed to unlock temporary slot", "lock", lockPath, "error", unlockErr)
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, m.NewMaterializeError(doc, m.ErrDirectoryCreation, err)
		}

		slog.DebugContext(ctx, "Temporary slot still present, trying next", "root", root)
	}

	return nil, m.NewMaterializeError(doc, m.ErrSlotsExhausted, nil)
}

// removeTree deletes a temporary tree. Only directories whose base name is a
// reserved slot name are ever removed.
func (mt *materializer) removeTree(ctx context.Context, file *ScannableFile) {
	defer mt.registry.remove(file)

	if !IsReservedName(filepath.Base(string(file.tempRoot))) {
		slog.ErrorContext(ctx, "Refusing to delete directory", "root", file.tempRoot, "error", m.ErrNotOwned)
		mt.unlock(ctx, file)

		return
	}

	if err := mt.fs.RemoveAll(ctx, file.tempRoot); err != nil {
		slog.ErrorContext(ctx, "Failed to cleanup temp dir", "root", file.tempRoot, "error", fmt.Errorf("%w: %w", m.ErrCleanup, err))
	} else {
		slog.DebugContext(ctx, "Removed temp dir", "root", file.tempRoot)
	}

	if file.lockPath != "" {
		if err := mt.fs.Remove(ctx, file.lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.WarnContext(ctx, "Failed to remove lock file", "lock", file.lockPath, "error", err)
		}
	}

	mt.unlock(ctx, file)
}

// detach stops tracking a kept tree without deleting it.
func (mt *materializer) detach(ctx context.Context, file *ScannableFile) {
	mt.registry.remove(file)
	mt.unlock(ctx, file)

	slog.DebugContext(ctx, "Keeping temp dir", "root", file.tempRoot)
}

func (mt *materializer) unlock(ctx context.Context, file *ScannableFile) {
	if file.lock == nil {
		return
	}

	if err := file.lock.Unlock(); err != nil {
		slog.WarnContext(ctx, "Failed to unlock temporary slot", "lock", file.lockPath, "error", err)
	}
}

func (mt *materializer) existsOnDisk(ctx context.Context, path m.Path) bool {
	info, err := mt.fs.FileInfo(ctx, path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.DebugContext(ctx, "Cannot stat backing file", "path", path, "error", err)
		}

		return false
	}

	return info.Mode().IsRegular()
}

// validateName rejects names that would escape the mirrored directory.
func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid file name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("file name %q contains a path separator", name)
	}

	return nil
}
