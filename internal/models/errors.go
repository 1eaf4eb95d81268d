package models

import (
	"errors"
	"fmt"
)

// Common error types
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrConflict      = errors.New("operation conflicts with current state")
)

// Error codes carried by AppError
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeIndexOutOfRange  = "INDEX_OUT_OF_RANGE"
	CodeProviderDisabled = "PROVIDER_DISABLED"
)

// AppError represents an application-level error with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrInvalidInput creates a validation error
func ErrInvalidInput(message string) error {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: message,
	}
}

// ErrNotFoundWithMsg creates a not found error with custom message
func ErrNotFoundWithMsg(message string) error {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
		Err:     ErrNotFound,
	}
}

// ErrConflictWithMsg creates a conflict error with custom message
func ErrConflictWithMsg(message string) error {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Err:     ErrConflict,
	}
}

// ErrIndexOutOfRange wraps a row bounds violation from the selection engine
func ErrIndexOutOfRange(err error) error {
	return &AppError{
		Code:    CodeIndexOutOfRange,
		Message: "row index out of range",
		Err:     err,
	}
}

// ErrUnknownProvider reports a send routed to a carrier that is not configured
func ErrUnknownProvider(provider string) error {
	return &AppError{
		Code:    CodeProviderDisabled,
		Message: fmt.Sprintf("provider %q is not enabled", provider),
	}
}
