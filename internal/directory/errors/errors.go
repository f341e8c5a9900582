// Package errors defines the failure kinds surfaced by the directory core.
// Every failure returned by the store or the service layer wraps exactly one
// of the sentinels below, so callers can branch with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = fmt.Errorf("validation failed")
	ErrConflict   = fmt.Errorf("conflict")
	ErrNotFound   = fmt.Errorf("not found")
	ErrAuthDenied = fmt.Errorf("access denied")
	ErrInternal   = fmt.Errorf("internal error")
)

// Kind is a stable, client-facing name for a failure category.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindAuthDenied Kind = "auth_denied"
	KindInternal   Kind = "internal"
)

// KindOf reports the category of err. Errors that wrap none of the
// sentinels are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAuthDenied):
		return KindAuthDenied
	default:
		return KindInternal
	}
}

// Validation wraps ErrValidation with a message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Conflict wraps ErrConflict with a message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with a message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Internal wraps an unexpected failure so it is reported as ErrInternal
// while keeping the cause in the chain.
func Internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
