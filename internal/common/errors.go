// Package common defines the error taxonomy shared by the metadata store,
// the object store, the services and the API boundary. Callers should use
// errors.Is to match the kinds below.
package common

import (
	"errors"
	"strings"
)

var (
	// Request-level errors.
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrDependency marks a metadata or object store failure. It is retryable.
	ErrDependency = errors.New("dependency error")

	// ErrConditionFailed is returned by stores when a conditional write is
	// rejected because the stored state no longer matches the precondition.
	ErrConditionFailed = errors.New("condition failed")
)

// Error is a classified error. Kind is one of the sentinels above, Op names
// the failed operation and Err keeps the underlying cause (for example an SDK
// error) reachable through errors.As.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Kind != nil:
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Validation reports malformed or missing input.
func Validation(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

// NotFound reports a missing record.
func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

// Conflict reports a duplicate identifier on create.
func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

// Forbidden reports an ownership mismatch.
func Forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

// Dependency wraps a store or network failure for operation op.
func Dependency(op string, err error) error {
	return &Error{Kind: ErrDependency, Op: op, Err: err}
}

// Code returns the stable API error code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrDependency):
		return "DEPENDENCY_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
