package domain

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

// ScannableFile is a real file standing in for one document during one scan.
//
// When TempRoot is empty the file is the document's own backing file and is
// never deleted. Otherwise RealPath lies inside TempRoot and the whole tree
// under TempRoot belongs to this ScannableFile until Release.
type ScannableFile struct {
	doc      m.Document
	realPath m.Path
	tempRoot m.Path
	lockPath m.Path
	lock     adapter.SlotLock
	owner    *materializer
	released atomic.Bool
}

// RealPath is the path handed to the external tool.
func (s *ScannableFile) RealPath() m.Path {
	return s.realPath
}

// TempRoot is the owned temporary directory, or empty.
func (s *ScannableFile) TempRoot() m.Path {
	return s.tempRoot
}

// Document returns the originating document.
func (s *ScannableFile) Document() m.Document {
	return s.doc
}

// Temporary reports whether RealPath is a temporary copy.
func (s *ScannableFile) Temporary() bool {
	return s.tempRoot != ""
}

// Release deletes the temporary tree, if any. It is safe on a nil receiver
// and only the first call has an effect. Cleanup failures are logged.
func (s *ScannableFile) Release(ctx context.Context) {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return
	}

	if s.owner == nil || s.tempRoot == "" {
		return
	}

	s.owner.removeTree(ctx, s)
}

// Keep hands the temporary tree over to the caller: it is dropped from the
// registry, its slot lock is released and later Release calls do nothing.
// The tree stays on disk until a sweep reclaims it.
func (s *ScannableFile) Keep(ctx context.Context) {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return
	}

	if s.owner == nil || s.tempRoot == "" {
		return
	}

	s.owner.detach(ctx, s)
}

func (s *ScannableFile) String() string {
	return fmt.Sprintf("[ScannableFile: file=%s; temporary=%t]", s.realPath, s.Temporary())
}

// ReleaseAll releases every file, ignoring nil entries.
func ReleaseAll(ctx context.Context, files []*ScannableFile) {
	for _, file := range files {
		file.Release(ctx)
	}
}

// KeepAll keeps every file, ignoring nil entries.
func KeepAll(ctx context.Context, files []*ScannableFile) {
	for _, file := range files {
		file.Keep(ctx)
	}
}

// Summarize converts files into the model used by the UI.
func Summarize(files []*ScannableFile) []m.MaterializedFile {
	summary := make([]m.MaterializedFile, 0, len(files))

	for _, file := range files {
		if file == nil {
			continue
		}

		summary = append(summary, m.MaterializedFile{
			Document:  file.doc.ID(),
			RealPath:  file.realPath,
			TempRoot:  file.tempRoot,
			Temporary: file.Temporary(),
		})
	}

	return summary
}
