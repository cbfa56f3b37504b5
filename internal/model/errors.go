package model

import "errors"

// Error categories. Every failure surfaced by the reward engine wraps exactly
// one of these so callers can classify it with errors.Is.
var (
	// ErrValidation marks bad caller input; no state was touched.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing user or contribution.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks a conflict that outlived the retry budget; retry the whole operation.
	ErrTransient = errors.New("transient failure")
	// ErrDefect marks a broken internal invariant.
	ErrDefect = errors.New("internal defect")
)
