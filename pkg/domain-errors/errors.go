// Package domainerrors carries coded errors across module boundaries so
// transport layers can translate business failures without string matching.
//
// Expected business-rule violations (bad names, missing permissions, state
// conflicts) travel as coded errors, never as panics. Panics are reserved
// for programming errors and terminate only the failing call.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and transports.
type Code string

const (
	// CodeValidation marks malformed input rejected before any mutation.
	CodeValidation Code = "validation"
	// CodeBadRequest marks a structurally invalid request body or parameter.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput marks an identifier or enum that failed parsing.
	CodeInvalidInput Code = "invalid_input"
	// CodeUnauthorized marks a request with no acting player attached.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an actor lacking the required permission or
	// founder identity.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks a reference to a deleted or unknown aggregate.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a state-conflict failure such as a duplicate
	// proposal or a civilization already at capacity.
	CodeConflict Code = "conflict"
	// CodeInvalidState marks an operation that does not apply to the
	// aggregate's current state, such as breaking a war by treaty.
	CodeInvalidState Code = "invalid_state"
	// CodeInvariantViolation marks a domain invariant rejected by a model
	// constructor or transition check.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks an unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. The message is safe to show to players.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a player-facing reason.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted player-facing reason.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error while keeping the
// cause reachable through errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// Is is a readability alias for HasCode used at transport boundaries.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code on err, or CodeInternal when err carries
// no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Reason returns the player-facing message of the outermost coded error.
func Reason(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code onto the HTTP status used by all JSON handlers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	case CodeInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
