package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	m "github.com/kazie/pylint-pycharm/internal/model"
)

// Workspace is the host editor state seen by the materializer: project
// settings plus every candidate document.
type Workspace interface {
	// Project returns the project settings.
	Project() m.Project

	// Read enumerates candidate documents and calls fn with them while document
	// state is held stable. Update blocks until fn returns.
	Read(ctx context.Context, fn func(docs []m.Document) error) error

	// Update records an editor change to an open document.
	Update(ctx context.Context, doc m.Document) error
}

// skippedDirs are never enumerated.
var skippedDirs = map[string]struct{}{
	"__pycache__":  {},
	"node_modules": {},
	"venv":         {},
}

// SnapshotWorkspace is a Workspace made of the documents open in the editor
// plus every file found under the project root.
type SnapshotWorkspace struct {
	mu      sync.RWMutex
	fs      SourceFSAdapter
	project m.Project
	open    []m.Document
}

// NewSnapshotWorkspace constructs a workspace. Open documents take precedence
// over files enumerated from disk at the same location.
func NewSnapshotWorkspace(fs SourceFSAdapter, project m.Project, open []m.Document) *SnapshotWorkspace {
	docs := make([]m.Document, len(open))
	copy(docs, open)

	return &SnapshotWorkspace{
		fs:      fs,
		project: project,
		open:    docs,
	}
}

// Project implements Workspace.
func (w *SnapshotWorkspace) Project() m.Project {
	return w.project
}

// Read implements Workspace.
func (w *SnapshotWorkspace) Read(ctx context.Context, fn func(docs []m.Document) error) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	docs, err := w.enumerate(ctx)
	if err != nil {
		return err
	}

	return fn(docs)
}

// Update implements Workspace.
func (w *SnapshotWorkspace) Update(ctx context.Context, doc m.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.open {
		if w.open[i].ID() == doc.ID() {
			w.open[i] = doc
			return nil
		}
	}

	w.open = append(w.open, doc)

	return nil
}

func (w *SnapshotWorkspace) enumerate(ctx context.Context) ([]m.Document, error) {
	docs := make([]m.Document, 0, len(w.open))
	seen := make(map[string]struct{}, len(w.open))

	for _, doc := range w.open {
		docs = append(docs, doc)
		seen[filepath.Clean(doc.ID())] = struct{}{}
	}

	if w.project.Root == "" {
		return docs, nil
	}

	root := string(w.project.Root)

	err := w.fs.Walk(ctx, w.project.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			slog.Warn("Skipping unreadable path", "path", path, "error", err)
			return nil
		}

		if info.IsDir() {
			if path != root && skipDir(info.Name()) {
				return filepath.SkipDir
			}

			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		if _, ok := seen[filepath.Clean(path)]; ok {
			return nil
		}

		docs = append(docs, m.Document{
			Name:   info.Name(),
			Dir:    m.Path(filepath.Dir(path)),
			Origin: m.DiskOrigin{Path: m.Path(path)},
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", root, err)
	}

	slog.Debug("Enumerated workspace documents", "root", root, "open", len(w.open), "total", len(docs))

	return docs, nil
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}

	_, ok := skippedDirs[name]

	return ok
}
