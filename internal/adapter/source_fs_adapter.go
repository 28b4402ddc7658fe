// Package adapter contains infrastructure adapters for the scanmirror CLI.
package adapter

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	m "github.com/kazie/pylint-pycharm/internal/model"
)

// SourceFSAdapter abstracts filesystem-specific operations that the domain layer
// relies on when materializing documents. It hides direct `os` access so the
// materialization logic can be tested against an in-memory filesystem.
//
//nolint:interfacebloat // A richer interface keeps domain logic decoupled from os/fs.
type SourceFSAdapter interface {
	// Walk traverses root recursively.
	Walk(ctx context.Context, root m.Path, fn FilepathWalkFunc) error

	// ReadFile loads a file and returns its contents.
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)

	// FileInfo returns metadata for a path so the domain can check existence or
	// distinguish between files and directories.
	FileInfo(ctx context.Context, path m.Path) (os.FileInfo, error)

	// ReadDir lists the entries of a directory.
	ReadDir(ctx context.Context, path m.Path) ([]os.FileInfo, error)

	// Mkdir creates a single directory. It fails with os.ErrExist when the
	// directory is already present, which makes it usable as an exclusive claim.
	Mkdir(ctx context.Context, path m.Path, perm os.FileMode) error

	// MkdirAll creates a directory together with any missing parents.
	MkdirAll(ctx context.Context, path m.Path, perm os.FileMode) error

	// CreateFile opens path for writing, truncating any previous content.
	CreateFile(ctx context.Context, path m.Path, perm os.FileMode) (io.WriteCloser, error)

	// Remove deletes a single file or empty directory.
	Remove(ctx context.Context, path m.Path) error

	// RemoveAll removes a directory and all its contents.
	RemoveAll(ctx context.Context, path m.Path) error

	// RelPath returns the relative path from base to target.
	RelPath(ctx context.Context, base, target m.Path) (m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(ctx context.Context, elem ...string) m.Path
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk. It is
// defined here to avoid leaking the standard-library type directly into the
// domain layer.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFSAdapter implements SourceFSAdapter on top of an afero filesystem.
type LocalSourceFSAdapter struct {
	fs afero.Fs
}

// NewLocalSourceFSAdapter constructs an adapter backed by the operating system.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return NewSourceFSAdapter(afero.NewOsFs())
}

// NewSourceFSAdapter constructs an adapter backed by fs.
func NewSourceFSAdapter(fs afero.Fs) *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{fs: fs}
}

// Walk iterates over everything under root.
func (a *LocalSourceFSAdapter) Walk(ctx context.Context, root m.Path, fn FilepathWalkFunc) error {
	return afero.Walk(a.fs, string(root), func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		return fn(path, info, err)
	})
}

// ReadFile loads file contents.
func (a *LocalSourceFSAdapter) ReadFile(_ context.Context, path m.Path) ([]byte, error) {
	return afero.ReadFile(a.fs, string(path))
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(_ context.Context, path m.Path) (os.FileInfo, error) {
	return a.fs.Stat(string(path))
}

// ReadDir lists directory entries sorted by name.
func (a *LocalSourceFSAdapter) ReadDir(_ context.Context, path m.Path) ([]os.FileInfo, error) {
	return afero.ReadDir(a.fs, string(path))
}

// Mkdir creates a single directory.
func (a *LocalSourceFSAdapter) Mkdir(_ context.Context, path m.Path, perm os.FileMode) error {
	return a.fs.Mkdir(string(path), perm)
}

// MkdirAll creates a directory tree.
func (a *LocalSourceFSAdapter) MkdirAll(_ context.Context, path m.Path, perm os.FileMode) error {
	return a.fs.MkdirAll(string(path), perm)
}

// CreateFile opens path for writing.
func (a *LocalSourceFSAdapter) CreateFile(_ context.Context, path m.Path, perm os.FileMode) (io.WriteCloser, error) {
	// #nosec G304 - path is computed inside a reserved temporary tree
	return a.fs.OpenFile(string(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
}

// Remove deletes a single file or empty directory.
func (a *LocalSourceFSAdapter) Remove(_ context.Context, path m.Path) error {
	return a.fs.Remove(string(path))
}

// RemoveAll removes a directory and all its contents.
func (a *LocalSourceFSAdapter) RemoveAll(_ context.Context, path m.Path) error {
	return a.fs.RemoveAll(string(path))
}

// RelPath returns the relative path from base to target.
func (a *LocalSourceFSAdapter) RelPath(_ context.Context, base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalSourceFSAdapter) JoinPath(_ context.Context, elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
