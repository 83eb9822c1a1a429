package store

import "errors"

// Typed errors per §7's taxonomy: Validation, External-service, Cancelled,
// Store (constraint/corruption), wrapped via fmt.Errorf("%w", ...) at call
// sites, exactly as the teacher's sqlite_store.go does throughout.
var (
	ErrNotFound       = errors.New("store: not found")
	ErrValidation     = errors.New("store: validation failed")
	ErrDimMismatch    = errors.New("store: embedding dimension mismatch")
	ErrDuplicateEdge  = errors.New("store: duplicate (source, target, type) edge")
)
