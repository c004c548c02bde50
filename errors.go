// Package gvdb implements the GVDB binary database format used by
// dconf: a parser that turns a byte blob into an in-memory tree, an
// editable tree model with reference counting and parent linkage, a
// bucketed hash-table writer, and a slash-delimited path surface for
// querying it.
package gvdb

import "fmt"

// ErrorKind classifies why a gvdb operation failed.
type ErrorKind int

const (
	// InvalidHeader signals a bad signature or unsupported version.
	InvalidHeader ErrorKind = iota
	// Truncated signals an offset/length out of bounds, an unaligned
	// pointer, or a structural size mismatch.
	Truncated
	// BadType signals a hash item whose TypeChar is not v/H/L, or a
	// typed operation applied to the wrong node tag.
	BadType
	// PathSyntax signals an empty path, one not starting with '/', or
	// the wrong terminal slash for the requested mode.
	PathSyntax
	// NotFound signals a missing path segment, or a resolved node
	// whose type does not match the requested is_dir mode.
	NotFound
	// DuplicateParent signals an attempt to attach a node that
	// already has a parent.
	DuplicateParent
	// KeyTooLong signals a key that would serialize to more than
	// 65535 bytes.
	KeyTooLong
	// InternalLayout signals a writer invariant violation: a bucket
	// collision, an alignment gap of 8 bytes or more, or a
	// size-accounting mismatch.
	InternalLayout
	// Io signals an underlying read/write failure.
	Io
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidHeader:
		return "InvalidHeader"
	case Truncated:
		return "Truncated"
	case BadType:
		return "BadType"
	case PathSyntax:
		return "PathSyntax"
	case NotFound:
		return "NotFound"
	case DuplicateParent:
		return "DuplicateParent"
	case KeyTooLong:
		return "KeyTooLong"
	case InternalLayout:
		return "InternalLayout"
	case Io:
		return "Io"
	default:
		return "Unknown"
	}
}

// Error is the error type every fallible gvdb operation returns. It
// carries an ErrorKind for programmatic dispatch (see KindIs below)
// plus a human-readable message and an optional underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gvdb: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("gvdb: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// newErr builds an *Error, optionally wrapping cause.
func newErr(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindIs reports whether err is (or wraps) a *Error of the given kind.
func KindIs(err error, kind ErrorKind) bool {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind == kind
	}
	return false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
