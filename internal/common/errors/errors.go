// Package errors defines the error kinds shared by the attestation library.
// Every failure that crosses the public API boundary is classified as one of
// the kinds below and rendered as a Status by the caller-facing wrappers.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an attestation failure.
type Kind int

// Error kinds. The numeric values are part of the wire contract: they are
// returned verbatim as Status.code to non-Go callers.
const (
	OK            Kind = 0
	ArgumentError Kind = 1
	InvalidFormat Kind = 2
	InternalError Kind = 3
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case ArgumentError:
		return "argument_error"
	case InvalidFormat:
		return "invalid_format"
	case InternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified attestation error. Message is a short reason;
// Details carries the long-form diagnostic (chain step, per-policy-entry
// mismatches) accumulated on the way up.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Cause   error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetails attaches a long-form diagnostic to the error.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// New creates a new classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a new classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a classified error. The cause's details, if any,
// are carried over so diagnostics survive re-wrapping.
func Wrap(err error, kind Kind, message string) *Error {
	e := &Error{Kind: kind, Message: message, Cause: err}
	var cause *Error
	if errors.As(err, &cause) {
		e.Details = cause.Details
	}
	return e
}

// IsKind reports whether err is a classified error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Classify returns the status triple for err. Unclassified errors are
// internal: anything the library did not explicitly label is a failure of
// the verification machinery, not of the caller's inputs.
func Classify(err error) (code int, message string, details string) {
	if err == nil {
		return int(OK), "success", ""
	}
	var e *Error
	if errors.As(err, &e) {
		details = e.Details
		if details == "" && e.Cause != nil {
			details = e.Cause.Error()
		}
		return int(e.Kind), e.Error(), details
	}
	return int(InternalError), err.Error(), ""
}
