package adapter

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	m "github.com/kazie/pylint-pycharm/internal/model"
)

// ProjectFilter decides which documents are eligible for scanning. It knows
// the project's extension and exclusion configuration.
type ProjectFilter interface {
	IsScannable(ctx context.Context, project m.Project, doc m.Document) bool
}

// PatternProjectFilter matches documents by extension and doublestar globs.
// Globs are evaluated against the slash-separated path relative to the
// project root (or the full logical path for documents outside it). A glob
// without a slash also matches the base name.
type PatternProjectFilter struct {
	extensions map[string]struct{}
	exclude    []string
	include    []string
}

// NewPatternProjectFilter builds a filter. An empty extensions list accepts
// every extension. Invalid globs are logged and ignored.
func NewPatternProjectFilter(extensions, exclude []string) *PatternProjectFilter {
	exts := make(map[string]struct{}, len(extensions))

	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}

		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		exts[ext] = struct{}{}
	}

	return &PatternProjectFilter{
		extensions: exts,
		exclude:    validPatterns(exclude),
	}
}

// WithInclude returns a copy of the filter that additionally requires a match
// against one of patterns. No patterns means everything is included.
func (f *PatternProjectFilter) WithInclude(patterns ...string) *PatternProjectFilter {
	clone := *f
	clone.include = validPatterns(patterns)

	return &clone
}

// IsScannable implements ProjectFilter.
func (f *PatternProjectFilter) IsScannable(_ context.Context, project m.Project, doc m.Document) bool {
	if doc.Name == "" {
		return false
	}

	if len(f.extensions) > 0 {
		if _, ok := f.extensions[strings.ToLower(filepath.Ext(doc.Name))]; !ok {
			return false
		}
	}

	name := matchName(project, doc)

	for _, pattern := range f.exclude {
		if matchPattern(pattern, name, doc.Name) {
			slog.Debug("Document excluded", "document", doc.ID(), "pattern", pattern)
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}

	for _, pattern := range f.include {
		if matchPattern(pattern, name, doc.Name) {
			return true
		}
	}

	return false
}

func matchName(project m.Project, doc m.Document) string {
	logical := doc.LogicalPath()
	if rel, ok := m.Within(project.Root, logical); ok {
		return filepath.ToSlash(string(rel))
	}

	return filepath.ToSlash(string(logical))
}

func matchPattern(pattern, name, base string) bool {
	if ok, _ := doublestar.Match(pattern, name); ok {
		return true
	}

	// A bare directory pattern covers everything beneath it.
	if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/")+"/**", name); ok {
		return true
	}

	if !strings.Contains(pattern, "/") {
		ok, _ := doublestar.Match(pattern, base)
		return ok
	}

	return false
}

func validPatterns(patterns []string) []string {
	valid := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(strings.TrimPrefix(strings.TrimSpace(pattern), "./"))
		if pattern == "" || pattern == "." {
			continue
		}

		if !doublestar.ValidatePattern(pattern) {
			slog.Warn("Ignoring invalid path pattern", "pattern", pattern)
			continue
		}

		valid = append(valid, pattern)
	}

	return valid
}
