// Package domainerrors defines the typed error taxonomy returned by services.
//
// Stores and infrastructure return sentinel errors (pkg/platform/sentinel);
// services translate those facts into coded domain errors; the HTTP layer maps
// codes to status signals. Handlers never inspect raw store errors.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure. Codes are part of the API contract:
// they appear verbatim in JSON error envelopes.
type Code string

const (
	// CodeBadRequest covers malformed requests: unparseable bodies, bad IDs.
	CodeBadRequest Code = "bad_request"
	// CodeValidation covers well-formed requests with invalid content:
	// unknown doc type, oversized file, missing mandatory notes.
	CodeValidation Code = "validation_failed"
	// CodeConflict signals a uniqueness violation, e.g. a duplicate pending
	// submission for the same user and doc type.
	CodeConflict Code = "conflict"
	// CodeInvalidState signals a transition attempted on a record that is no
	// longer in the required state. Never retried automatically; the caller
	// must re-read before acting again.
	CodeInvalidState Code = "invalid_state"
	// CodeNotFound signals an unknown identifier.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized signals missing or unusable identity claims.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden signals a role insufficient for the operation.
	CodeForbidden Code = "forbidden"
	// CodeUnavailable signals a dependency (blob store, record store, cache)
	// failure or timeout. The only retryable code.
	CodeUnavailable Code = "unavailable"
	// CodeInvariantViolation signals a broken domain invariant detected at
	// construction or mutation time. Internal; should not escape services.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal is the catch-all for unexpected failures.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a caller-safe message, and an optional wrapped cause.
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

func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause is
// preserved for errors.Is/As but never shown to callers.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err is (or wraps) a domain error with the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// non-domain errors so unexpected failures never leak detail.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Retryable reports whether the caller may safely retry the operation.
// Only dependency failures qualify; conflicts and invalid states require the
// caller to re-read current state first.
func Retryable(err error) bool {
	return HasCode(err, CodeUnavailable)
}

// ToHTTPStatus maps a code to its HTTP status signal.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
