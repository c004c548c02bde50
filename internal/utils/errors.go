// Package utils provides small utilities shared by the GVDB codec's
// internal packages: contextual error wrapping, pooled scratch buffers,
// and overflow-checked arithmetic.
package utils

import "fmt"

// WrappedError attaches a short context string to an underlying cause,
// the way low-level codec helpers report where in a multi-step decode
// or encode something went wrong.
type WrappedError struct {
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *WrappedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// WrapError creates a contextual error, or returns nil if cause is nil.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &WrappedError{
		Context: context,
		Cause:   cause,
	}
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *WrappedError) Unwrap() error {
	return e.Cause
}
