// Package errors defines the error taxonomy of the comic store and how each
// kind maps to an HTTP response.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine readable kind of an error, sent to API clients.
type ErrorCode string

const (
	// Validation failures.
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrMissingField     ErrorCode = "MISSING_FIELD"
	ErrInvalidFormat    ErrorCode = "INVALID_FORMAT"

	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrStorageError means reading or writing the data files failed.
	ErrStorageError      ErrorCode = "STORAGE_ERROR"
	ErrInternal          ErrorCode = "INTERNAL_ERROR"
	ErrRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// StatusCode returns the HTTP status sent for c.
func (c ErrorCode) StatusCode() int {
	switch c {
	case ErrValidationFailed, ErrMissingField, ErrInvalidFormat:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorWithStatus is an error that can be rendered as an API error response.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is the error returned by the store and the request validators.
type APIError struct {
	code    ErrorCode
	message string
	details map[string]any
	err     error
}

func newError(code ErrorCode, message string, err error) *APIError {
	return &APIError{code: code, message: message, err: err}
}

// WithDetail attaches a key/value pair sent along with the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = map[string]any{}
	}
	e.details[key] = value
	return e
}

func (e *APIError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.code.StatusCode()
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns the attached details, nil when there are none.
func (e *APIError) Details() map[string]any {
	return e.details
}

func (e *APIError) Unwrap() error {
	return e.err
}

// NotFound reports that resource does not exist.
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, resource+" not found", nil)
}

// ValidationFailed reports invalid input.
func ValidationFailed(message string) *APIError {
	return newError(ErrValidationFailed, message, nil)
}

// MissingField reports that a required field is empty.
func MissingField(field string) *APIError {
	return newError(ErrMissingField, "Missing required field: "+field, nil).WithDetail("field", field)
}

// InvalidFormat reports a malformed field.
func InvalidFormat(field, message string) *APIError {
	return newError(ErrInvalidFormat, message, nil).WithDetail("field", field)
}

// Persistence reports a failed read or write of the data files. err may be
// nil.
func Persistence(message string, err error) *APIError {
	return newError(ErrStorageError, message, err)
}

// Internal reports an unexpected failure.
func Internal(message string, err error) *APIError {
	return newError(ErrInternal, message, err)
}

// RateLimitExceeded tells the client to retry after the given seconds.
func RateLimitExceeded(retryAfter int) *APIError {
	return newError(ErrRateLimitExceeded, "Rate limit exceeded", nil).WithDetail("retry_after", retryAfter)
}

func codeOf(err error) ErrorCode {
	var ews ErrorWithStatus
	if errors.As(err, &ews) {
		return ews.Code()
	}
	return ""
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	switch codeOf(err) {
	case ErrValidationFailed, ErrMissingField, ErrInvalidFormat:
		return true
	default:
		return false
	}
}

// IsNotFound reports whether err means the referenced entry does not exist.
func IsNotFound(err error) bool {
	return codeOf(err) == ErrNotFound
}

// IsPersistence reports whether err is a storage read or write failure.
func IsPersistence(err error) bool {
	return codeOf(err) == ErrStorageError
}
