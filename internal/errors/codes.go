package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type for matching pipeline operations.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates a required credential or setting is missing.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
	// ErrCodeValidation indicates caller input violates a known provider constraint.
	ErrCodeValidation ErrorCode = "VALIDATION"
	// ErrCodeUpstream indicates the embedding, LLM or vector provider returned a failure.
	ErrCodeUpstream ErrorCode = "UPSTREAM"
	// ErrCodeNotFound indicates the referenced entity or its embedding does not exist yet.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeParse indicates an LLM response did not contain recoverable JSON.
	ErrCodeParse ErrorCode = "PARSE"
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Error represents a structured, coded error.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *Error) GetCode() ErrorCode {
	return e.Code
}

// Configuration creates a configuration error.
func Configuration(msg string) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// Upstream wraps a provider failure.
func Upstream(msg string, cause error) *Error {
	return &Error{Code: ErrCodeUpstream, Message: msg, Cause: cause}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: msg}
}

// Parse creates a parse error.
func Parse(msg string, cause error) *Error {
	return &Error{Code: ErrCodeParse, Message: msg, Cause: cause}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *Error {
	return &Error{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *Error {
	return &Error{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string, cause error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code.
func Wrap(cause error, code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error, or any error it wraps, carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if no coded error is found in the chain.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded.Code
	}
	return defaultCode
}
