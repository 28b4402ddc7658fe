package domain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

const dirPerm = 0o700

// PathMirror computes where a document's temporary copy lives inside a
// temporary root, keeping its position relative to the project root so tool
// diagnostics remain interpretable.
type PathMirror struct {
	fs adapter.SourceFSAdapter
}

// NewPathMirror constructs a PathMirror.
func NewPathMirror(fs adapter.SourceFSAdapter) *PathMirror {
	return &PathMirror{fs: fs}
}

// Mirror returns the directory that will hold doc's copy, creating it if
// needed. Documents under the project root map to tempRoot/<relative dir>;
// documents outside it, or without a parent, map to tempRoot itself.
func (p *PathMirror) Mirror(ctx context.Context, project m.Project, doc m.Document, tempRoot m.Path) (m.Path, error) {
	dir := tempRoot

	if rel, ok := m.Within(project.Root, doc.Dir); ok {
		dir = p.fs.JoinPath(ctx, string(tempRoot), string(rel))
	} else {
		slog.Debug("Document outside project root, using flat placement",
			"document", doc.ID(), "root", project.Root)
	}

	if err := p.fs.MkdirAll(ctx, dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	return dir, nil
}
