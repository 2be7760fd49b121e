package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrAuthExchange = errors.New("auth exchange failed")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict returns an AppError indicating a uniqueness violation.
// The registration flow surfaces it to the user ("Email already registered").
func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

// AuthExchange wraps a provider handshake failure. The cause stays in the
// chain for logging; HTML routes surface only a generic flash message.
func AuthExchange(cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %v", ErrAuthExchange, cause),
		Message: "authentication with the identity provider failed",
	}
}
