package storage

import (
	"errors"
	"fmt"
)

// Common errors returned by the store and its repositories.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateDocument = errors.New("duplicate document checksum")
	ErrDuplicateModel    = errors.New("duplicate model number")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrConflictClosed    = errors.New("conflict already resolved")
	ErrVersionMismatch   = errors.New("stale product version")
	ErrRelationCycle     = errors.New("relationship would create a cycle")
	ErrEmbeddingDim      = errors.New("embedding dimension mismatch")
)

// ValidationError reports a rejected write with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
