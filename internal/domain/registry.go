package domain

import (
	"context"
	"log/slog"
	"sync"
)

// Registry tracks ScannableFiles whose temporary trees are still on disk.
// Callers release files explicitly; ReleaseAll is the shutdown safety net for
// anything a caller failed to release.
type Registry struct {
	mu   sync.Mutex
	live map[*ScannableFile]struct{}
}

// DefaultRegistry is used by materializers that are not given one.
var DefaultRegistry = NewRegistry()

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{live: make(map[*ScannableFile]struct{})}
}

// Len returns the number of live temporary trees.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.live)
}

// ReleaseAll releases every live file and returns how many there were.
func (r *Registry) ReleaseAll(ctx context.Context) int {
	r.mu.Lock()
	files := make([]*ScannableFile, 0, len(r.live))

	for file := range r.live {
		files = append(files, file)
	}
	r.mu.Unlock()

	if len(files) > 0 {
		slog.WarnContext(ctx, "Releasing leftover temporary files", "count", len(files))
	}

	ReleaseAll(ctx, files)

	return len(files)
}

func (r *Registry) add(file *ScannableFile) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.live[file] = struct{}{}
}

func (r *Registry) remove(file *ScannableFile) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.live, file)
}
