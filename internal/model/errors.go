package model

import (
	"errors"
	"fmt"
)

// Materialization failure kinds.
var (
	// ErrAcquisition indicates the document's location could not be determined.
	ErrAcquisition = errors.New("cannot determine document location")

	// ErrDirectoryCreation indicates the temporary tree could not be created.
	ErrDirectoryCreation = errors.New("cannot create temporary directory")

	// ErrWrite indicates the document content could not be transferred.
	ErrWrite = errors.New("cannot write document content")

	// ErrSlotsExhausted indicates every temporary directory slot is in use.
	ErrSlotsExhausted = errors.New("no free temporary directory slot")
)

// Cleanup errors.
var (
	// ErrCleanup indicates a temporary tree could only be partially removed.
	ErrCleanup = errors.New("cannot remove temporary directory")

	// ErrNotOwned indicates a path does not carry the reserved directory prefix.
	ErrNotOwned = errors.New("not a reserved temporary directory")
)

// MaterializeError reports why a single document could not be materialized.
type MaterializeError struct {
	Document string
	Kind     error
	Err      error
}

// NewMaterializeError builds a MaterializeError for doc.
func NewMaterializeError(doc Document, kind, err error) *MaterializeError {
	return &MaterializeError{Document: doc.ID(), Kind: kind, Err: err}
}

func (e *MaterializeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("materialize %s: %v", e.Document, e.Kind)
	}

	return fmt.Sprintf("materialize %s: %v: %v", e.Document, e.Kind, e.Err)
}

// Unwrap exposes both the failure kind and the underlying cause to errors.Is/As.
func (e *MaterializeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}
