package core

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error for callers and the HTTP layer
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUpstream     Kind = "upstream_unavailable"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindStorage      Kind = "storage"
	KindInternal     Kind = "internal"
)

// Error is the error type returned across package boundaries.
// It carries a category, the failing operation and, for validation failures,
// the JSON path of the first offending field.
type Error struct {
	// Kind is the error category
	Kind Kind
	// Op names the operation that failed, e.g. "analysis.Analyze"
	Op string
	// Msg is a human readable message safe to show to clients
	Msg string
	// Path is the offending field path for validation errors ("indicators.0.riskLevel")
	Path string
	// Details lists every individual violation for validation errors
	Details []string
	// Upstream marks validation errors caused by an upstream payload rather than the caller
	Upstream bool
	// Err is the underlying cause
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Path != "" {
		fmt.Fprintf(&b, " (at %s)", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsForbidden reports whether err is a forbidden error
func IsForbidden(err error) bool {
	return KindOf(err) == KindForbidden
}

// NewValidationError creates a validation error for caller supplied input
func NewValidationError(op, msg, path string, details ...string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg, Path: path, Details: details}
}

// NewUpstreamError creates an error for a failed or unreachable external service
func NewUpstreamError(op, msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Msg: msg, Err: err}
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(op, msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg, Err: err}
}

// NewForbiddenError creates an error for access to another user's data
func NewForbiddenError(op, msg string) *Error {
	return &Error{Kind: KindForbidden, Op: op, Msg: msg}
}

// NewStorageError wraps a backing store failure
func NewStorageError(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Msg: "storage operation failed", Err: err}
}
