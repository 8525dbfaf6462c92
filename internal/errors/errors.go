package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Stopka error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrCorruptData    ErrorCode = "CORRUPT_DATA"
	ErrUpstream       ErrorCode = "UPSTREAM"
	ErrInternal       ErrorCode = "INTERNAL"
)

// StopkaError represents a structured error with a code and details.
type StopkaError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *StopkaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates an error for invalid parameters or configuration.
func NewInvalidRequest(msg string) *StopkaError {
	return &StopkaError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewNotFound creates an error for when a snapshot cannot be found.
func NewNotFound(key string) *StopkaError {
	return &StopkaError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("snapshot not found: %s", key),
		Details: map[string]any{"key": key},
	}
}

// NewCorruptData creates an error for a stored payload that cannot be
// decoded into a contact record.
func NewCorruptData(key, reason string) *StopkaError {
	return &StopkaError{
		Code:    ErrCorruptData,
		Message: fmt.Sprintf("snapshot %s is corrupt: %s", key, reason),
		Details: map[string]any{"key": key, "reason": reason},
	}
}

// NewUpstream creates an error for a failed call to the task service.
func NewUpstream(op string, status int, detail string) *StopkaError {
	return &StopkaError{
		Code:    ErrUpstream,
		Message: fmt.Sprintf("%s failed with status %d: %s", op, status, detail),
		Details: map[string]any{"op": op, "status": status, "detail": detail},
	}
}

// NewInternal creates an error for unexpected internal errors.
func NewInternal(err error) *StopkaError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &StopkaError{
		Code:    ErrInternal,
		Message: msg,
	}
}

// Is checks if err, or any error it wraps, is a StopkaError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *StopkaError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}
