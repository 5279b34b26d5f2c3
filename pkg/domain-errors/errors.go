// Package domainerrors provides coded errors that separate the failure
// taxonomy exposed to callers from the infrastructure facts reported by
// stores (see pkg/platform/sentinel for the latter).
//
// Services translate sentinel errors into coded errors at their boundary;
// handlers map codes onto HTTP statuses with ToHTTPStatus. Codes are part
// of the API contract, messages are diagnostics.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failure for callers.
type ErrorCode string

const (
	// CodeInvalidInput marks a programming-contract violation such as a
	// missing required argument.
	CodeInvalidInput ErrorCode = "invalid_input"
	// CodeValidation marks a well-formed but semantically invalid field.
	CodeValidation ErrorCode = "validation"
	// CodeInvalidFormat marks input a normalizer could not parse.
	CodeInvalidFormat ErrorCode = "invalid_format"
	// CodeInvalidLength marks a phone number outside the 8-15 digit range.
	CodeInvalidLength ErrorCode = "invalid_length"
	// CodeUnsupportedRegion marks an unknown default region for phone
	// normalization.
	CodeUnsupportedRegion ErrorCode = "unsupported_region"
	// CodeDuplicate marks a uniqueness violation among active records.
	CodeDuplicate ErrorCode = "duplicate"
	// CodeNotFound marks a reference to an id that does not exist or is
	// hidden by active-only visibility.
	CodeNotFound ErrorCode = "not_found"
	// CodeConflict marks an operation inapplicable to the current
	// lifecycle state, such as restoring an active record.
	CodeConflict ErrorCode = "conflict"
	// CodeInternal wraps opaque store failures. Not interpreted further.
	CodeInternal ErrorCode = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    ErrorCode
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

// New builds a coded error without a cause.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is/errors.As.
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// Code extracts the code from err, or CodeInternal when err carries none.
func Code(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.cause
	}
	return false
}

// Is is a readability alias for HasCode used at call sites that read like
// errors.Is.
func Is(err error, code ErrorCode) bool {
	return HasCode(err, code)
}

// ToHTTPStatus maps an error code onto the HTTP status the transport layer
// should respond with.
func ToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeInvalidInput, CodeValidation, CodeInvalidFormat, CodeInvalidLength, CodeUnsupportedRegion:
		return http.StatusBadRequest
	case CodeDuplicate, CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
