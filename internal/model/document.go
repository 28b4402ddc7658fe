// Package model defines the data structures shared by the materialization layer.
package model

import (
	"fmt"
	"path/filepath"
)

// Path represents a file system path.
type Path string

// Origin describes where an editor document comes from. The concrete variants
// are DiskOrigin and MemoryOrigin; no other type implements it.
type Origin interface {
	isOrigin()
}

// DiskOrigin is a document with a backing file location. Unsaved is true when
// the editor holds modifications that have not been flushed to Path.
type DiskOrigin struct {
	Path    Path
	Unsaved bool
}

// MemoryOrigin is a document that exists only inside the editor.
type MemoryOrigin struct{}

func (DiskOrigin) isOrigin()   {}
func (MemoryOrigin) isOrigin() {}

// Document is an editor-held representation of a source file.
type Document struct {
	// Name is the base file name, e.g. "mod.py".
	Name string
	// Dir is the logical parent directory. Empty when the document has no parent.
	Dir Path
	// Text is the editor content. Newlines are always "\n".
	Text string
	// Charset is an IANA charset name. Empty means UTF-8.
	Charset string
	Origin  Origin
}

// ID returns a stable identity for logs and errors.
func (d Document) ID() string {
	if disk, ok := d.Origin.(DiskOrigin); ok && disk.Path != "" {
		return string(disk.Path)
	}

	if d.Dir == "" {
		return d.Name
	}

	return filepath.Join(string(d.Dir), d.Name)
}

// LogicalPath is the path the document would have on disk, whether or not it exists.
func (d Document) LogicalPath() Path {
	return Path(d.ID())
}

// Project holds the host project settings consumed read-only by the materializer.
type Project struct {
	Root          Path
	LineSeparator LineSeparator
	// Charset is used for documents that do not declare one.
	Charset string
}

// LineSeparator is the line-ending convention configured for a project.
type LineSeparator string

// Supported line separators.
const (
	LF   LineSeparator = "\n"
	CRLF LineSeparator = "\r\n"
	CR   LineSeparator = "\r"
)

// ParseLineSeparator accepts the names used in configuration files
// ("lf", "crlf", "cr") as well as the literal and escaped sequences.
func ParseLineSeparator(value string) (LineSeparator, error) {
	switch value {
	case "", "lf", "LF", "\n", `\n`, "unix":
		return LF, nil
	case "crlf", "CRLF", "\r\n", `\r\n`, "windows":
		return CRLF, nil
	case "cr", "CR", "\r", `\r`, "mac":
		return CR, nil
	}

	return "", fmt.Errorf("unknown line separator %q", value)
}

// Name returns the configuration name of the separator.
func (s LineSeparator) Name() string {
	switch s {
	case CRLF:
		return "crlf"
	case CR:
		return "cr"
	default:
		return "lf"
	}
}
