package model

import (
	"path/filepath"
	"strings"
)

// Within reports whether path equals root or lies beneath it, comparing whole
// path components. On success it returns path relative to root ("." for root
// itself). "/proj2" is not within "/proj".
func Within(root, path Path) (Path, bool) {
	if root == "" || path == "" {
		return "", false
	}

	cleanRoot := filepath.Clean(string(root))
	cleanPath := filepath.Clean(string(path))

	if filepath.IsAbs(cleanRoot) != filepath.IsAbs(cleanPath) {
		return "", false
	}

	rel, err := filepath.Rel(cleanRoot, cleanPath)
	if err != nil {
		return "", false
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return Path(rel), true
}
