package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Configuration errors
	ErrConfigLoad    ErrorCode = "CONFIG_LOAD"
	ErrConfigParse   ErrorCode = "CONFIG_PARSE"
	ErrMissingConfig ErrorCode = "MISSING_CONFIG"

	// Pipeline stage errors
	ErrAssembly          ErrorCode = "ASSEMBLY"
	ErrUnknownTarget     ErrorCode = "UNKNOWN_TARGET"
	ErrTransport         ErrorCode = "TRANSPORT"
	ErrTransportTimeout  ErrorCode = "TRANSPORT_TIMEOUT"
	ErrPlanOutsideRoot   ErrorCode = "PLAN_OUTSIDE_ROOT"
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// History store errors
	ErrHistory ErrorCode = "HISTORY"
)

// RioError represents a structured error with code and details
type RioError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *RioError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *RioError) Unwrap() error {
	return e.Wrapped
}

// Is matches any RioError carrying the same code, so sentinels like
// errors.Is(err, errors.New(errors.ErrUnknownTarget, "")) work.
func (e *RioError) Is(target error) bool {
	var targetErr *RioError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new RioError with the given code and message
func New(code ErrorCode, message string) *RioError {
	return &RioError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new RioError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *RioError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a RioError. A nil err yields nil.
func Wrap(err error, code ErrorCode, message string) *RioError {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.Wrapped = err
	return e
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *RioError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithDetail adds a detail to the error
func (e *RioError) WithDetail(key string, value interface{}) *RioError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Convenience constructors for the pipeline error kinds.

// Assembly reports missing or corrupt build inputs.
func Assembly(format string, args ...interface{}) *RioError {
	return Newf(ErrAssembly, format, args...)
}

// UnknownTarget reports a target name that is not registered.
func UnknownTarget(name string) *RioError {
	return Newf(ErrUnknownTarget, "unknown deploy target %q", name).WithDetail("target", name)
}

// MissingConfiguration reports a required setting with no value anywhere
// in the lookup chain.
func MissingConfiguration(format string, args ...interface{}) *RioError {
	return Newf(ErrMissingConfig, format, args...)
}

// Transport wraps a network or authentication failure.
func Transport(err error, format string, args ...interface{}) *RioError {
	if err == nil {
		return Newf(ErrTransport, format, args...)
	}
	return Wrapf(err, ErrTransport, format, args...)
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var rioErr *RioError
	if errors.As(err, &rioErr) {
		return rioErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a RioError
func GetErrorCode(err error) ErrorCode {
	var rioErr *RioError
	if errors.As(err, &rioErr) {
		return rioErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a RioError
func GetErrorDetails(err error) map[string]interface{} {
	var rioErr *RioError
	if errors.As(err, &rioErr) {
		return rioErr.Details
	}
	return nil
}
