// Package businessflow contains the core business logic and use cases for the upload relay
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Transport-level errors
	ErrMethodNotAllowed = errors.New("Method Not Allowed")
	ErrMissingUpload    = errors.New("No image uploaded.")

	// Upload errors
	ErrMalformedUpload = errors.New("malformed multipart upload")
	ErrUploadTooLarge  = errors.New("uploaded file is too large")

	// Validation errors
	ErrInvalidSize   = errors.New("Invalid size")
	ErrInvalidMethod = errors.New("Invalid method")

	// Provider errors
	ErrUpstreamFailure = errors.New("enhancement provider failed")
)

// Business error codes
const (
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodeMissingUpload     = "MISSING_UPLOAD"
	CodeMalformedUpload   = "MALFORMED_UPLOAD"
	CodeUploadTooLarge    = "UPLOAD_TOO_LARGE"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeUpstreamFailure   = "UPSTREAM_FAILURE"
	CodeUnexpectedFailure = "UNEXPECTED_FAILURE"
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// ErrorCode returns the business code carried by err, or UNEXPECTED_FAILURE
func ErrorCode(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeUnexpectedFailure
}

// PublicMessage returns the message that may be shown to the caller.
// Wrapped causes stay in the logs.
func PublicMessage(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Message
	}
	return "Internal server error"
}

func IsMethodNotAllowed(err error) bool {
	return errors.Is(err, ErrMethodNotAllowed)
}

func IsMissingUpload(err error) bool {
	return errors.Is(err, ErrMissingUpload)
}

func IsMalformedUpload(err error) bool {
	return errors.Is(err, ErrMalformedUpload)
}

func IsUploadTooLarge(err error) bool {
	return errors.Is(err, ErrUploadTooLarge)
}

func IsInvalidSize(err error) bool {
	return errors.Is(err, ErrInvalidSize)
}

func IsInvalidMethod(err error) bool {
	return errors.Is(err, ErrInvalidMethod)
}

func IsValidationError(err error) bool {
	return IsInvalidSize(err) || IsInvalidMethod(err)
}

func IsUpstreamFailure(err error) bool {
	return errors.Is(err, ErrUpstreamFailure)
}
