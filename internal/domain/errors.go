package domain

import (
	"errors"
	"fmt"
)

// Code classifies arena errors for callers and logs.
type Code string

const (
	CodeConfiguration      Code = "configuration_error"
	CodeStateConflict      Code = "state_conflict"
	CodeTransientLookup    Code = "transient_lookup_failure"
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotJoinable        Code = "not_joinable"
	CodeUnknownParticipant Code = "unknown_participant"
)

// Error is the arena domain error carrying a machine-readable code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a domain error with a code and message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a domain error that wraps an underlying cause.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons.
var (
	ErrConfiguration      = &Error{Code: CodeConfiguration}
	ErrStateConflict      = &Error{Code: CodeStateConflict}
	ErrTransientLookup    = &Error{Code: CodeTransientLookup}
	ErrInvariantViolation = &Error{Code: CodeInvariantViolation}
	ErrNotJoinable        = &Error{Code: CodeNotJoinable}
	ErrUnknownParticipant = &Error{Code: CodeUnknownParticipant}
)

// CodeOf extracts the code of a domain error, or "" for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
