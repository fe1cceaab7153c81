// Package apperror defines the error kinds surfaced by the timesheet
// services. Each kind carries a stable machine-readable code that the HTTP
// layer maps to a status.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindValidation
	KindState
	KindDependency
	KindConflict
)

const (
	CodeNotFound   = "TIMESHEET_NOT_FOUND_ERROR"
	CodeValidation = "TIMESHEET_VALIDATION_ERROR"
	CodeState      = "TIMESHEET_INVALID_TRANSITION"
	CodeDependency = "FAILED_TO_FETCH_DETAILS"
	CodeConflict   = "TIMESHEET_CONFLICT_ERROR"
)

func (k Kind) Code() string {
	switch k {
	case KindNotFound:
		return CodeNotFound
	case KindValidation:
		return CodeValidation
	case KindState:
		return CodeState
	case KindDependency:
		return CodeDependency
	case KindConflict:
		return CodeConflict
	}
	return "TIMESHEET_INTERNAL_SERVER_ERROR"
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Code() string { return e.Kind.Code() }

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func State(format string, args ...any) error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Dependency wraps a failed collaborator call.
func Dependency(err error, format string, args ...any) error {
	return &Error{Kind: KindDependency, Message: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err is, or wraps, an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
