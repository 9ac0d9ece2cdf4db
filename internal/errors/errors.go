package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// PathNotFound indicates a repository path does not exist
	PathNotFound ErrorCode = "PATH_NOT_FOUND"
	// PathNotDirectory indicates a repository path is not a directory
	PathNotDirectory ErrorCode = "PATH_NOT_DIRECTORY"
	// AnalysisFailed indicates a single repository's analysis failed
	AnalysisFailed ErrorCode = "ANALYSIS_FAILED"
	// CacheError indicates a cache read or write failed
	CacheError ErrorCode = "CACHE_ERROR"
	// QueueClosed indicates work was submitted to a closed queue
	QueueClosed ErrorCode = "QUEUE_CLOSED"
	// InvalidArgument indicates a bad caller-supplied parameter
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// StorageError indicates the sqlite database failed
	StorageError ErrorCode = "STORAGE_ERROR"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// LensError represents a repolens error with a stable code and message
type LensError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a new LensError
func New(code ErrorCode, message string) *LensError {
	return &LensError{Code: code, Message: message}
}

// Wrap creates a new LensError wrapping an underlying cause
func Wrap(code ErrorCode, message string, cause error) *LensError {
	return &LensError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *LensError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LensError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *LensError) WithDetails(details interface{}) *LensError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or InternalError if err is not a
// LensError.
func CodeOf(err error) ErrorCode {
	var le *LensError
	if errors.As(err, &le) {
		return le.Code
	}
	return InternalError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
