// Package errors defines the coded error type shared by the ardenthat
// pipeline. Codes are stable so callers and tests can branch on the kind
// of failure without matching message text.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a category of failure
type ErrorCode string

const (
	ErrUnknown ErrorCode = "UNKNOWN"

	// Detection side. Never fatal to a run.
	ErrProbe ErrorCode = "PROBE"
	ErrParse ErrorCode = "PARSE"

	// Installation side. Fatal to the current setup run.
	ErrInstall  ErrorCode = "INSTALL"
	ErrFinalize ErrorCode = "FINALIZE"
	ErrBusy     ErrorCode = "BUSY"

	// Supporting infrastructure
	ErrConfig        ErrorCode = "CONFIG"
	ErrKnowledgeBase ErrorCode = "KNOWLEDGE_BASE"
	ErrReport        ErrorCode = "REPORT"
	ErrHistory       ErrorCode = "HISTORY"
)

// Error is a structured error with a code, message and optional details
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err with a code and message. Returns nil if err is nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.Wrapped = err
	return e
}

// Wrapf wraps err with a code and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetErrorCode returns the code of err, or ErrUnknown if it carries none
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}

// GetDetail returns a single detail value from err, if present
func GetDetail(err error, key string) (interface{}, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Details == nil {
		return nil, false
	}
	v, ok := e.Details[key]
	return v, ok
}
