// Package domainerrors defines coded errors for service-to-transport
// propagation. Stores return sentinel errors (pkg/platform/sentinel); services
// translate them into coded errors here; the HTTP layer maps codes to statuses.
//
// The caller-facing contract is that every failure mode in the ledger's
// taxonomy is programmatically distinguishable: a client must be able to tell
// "property not verified" from "not the owner" without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeInvalidInput  Code = "invalid_input"  // malformed or missing caller-supplied fields
	CodeBadRequest    Code = "bad_request"    // request cannot be processed as given
	CodeUnauthorized  Code = "unauthorized"   // caller lacks the required role or ownership
	CodeForbidden     Code = "forbidden"      // authenticated but not permitted
	CodeNotFound      Code = "not_found"      // referenced entity does not exist
	CodeNotVerified   Code = "not_verified"   // operation requires an admin verification not yet granted
	CodeInvalidTarget Code = "invalid_target" // transfer destination is invalid
	CodeConflict      Code = "conflict"       // lost a race on the same entity
	CodeUnavailable   Code = "unavailable"    // dependency temporarily unavailable
	CodeInternal      Code = "internal_error" // unexpected failure, details logged not exposed
)

// Error is a coded domain error. It wraps an optional cause.
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

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
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
		if err == nil {
			return false
		}
	}
	return false
}

// Is is shorthand for HasCode; it reads better in tests.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code carried by err, or CodeInternal if err is
// not a coded error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost message carried by err, or empty.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
