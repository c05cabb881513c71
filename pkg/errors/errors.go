// Package errors provides structured error types for vizframe.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, the HTTP adapter and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (poses, frame names, config)
//   - DUPLICATE_*: Registry consistency errors on insertion
//   - UNKNOWN_*: Registry consistency errors on lookup or removal
//   - INTERNAL_*: Unexpected internal errors
//
// Registry consistency errors indicate a usage error in the calling layer.
// They are always returned to the immediate caller and never swallowed.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidFrame, "frame name must not be empty")
//	if errors.Is(err, errors.ErrCodeInvalidFrame) {
//	    // Handle validation error
//	}
//
//	// Wrap a package sentinel so both errors.Is forms work
//	err := errors.Wrap(errors.ErrCodeInvalidPose, transform.ErrInvalidPose, "%s -> %s", src, dst)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidPose   Code = "INVALID_POSE"
	ErrCodeInvalidFrame  Code = "INVALID_FRAME"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidSample Code = "INVALID_SAMPLE"
	ErrCodeInvalidURL    Code = "INVALID_URL"

	// Registry consistency errors
	ErrCodeDuplicateEdge   Code = "DUPLICATE_EDGE"
	ErrCodeDuplicatePlugin Code = "DUPLICATE_PLUGIN"
	ErrCodeUnknownPlugin   Code = "UNKNOWN_PLUGIN"
	ErrCodeUnknownHandle   Code = "UNKNOWN_HANDLE"
	ErrCodeNotPlugin       Code = "NOT_PLUGIN"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeTimeout  Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
// Joined errors (errors.Join) match if any member matches.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) && e.Code == code {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			if Is(inner, code) {
				return true
			}
		}
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsRegistryError reports whether err signals a registry consistency problem
// (duplicate or unknown plugin, unknown handle, duplicate edge).
func IsRegistryError(err error) bool {
	switch GetCode(err) {
	case ErrCodeDuplicateEdge, ErrCodeDuplicatePlugin, ErrCodeUnknownPlugin,
		ErrCodeUnknownHandle, ErrCodeNotPlugin:
		return true
	}
	return false
}
