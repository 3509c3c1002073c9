package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was hit.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthenticated is returned when an operation needs a signed-in customer.
	ErrUnauthenticated = errors.New("sign in required")
	// ErrValidation marks input rejected before any remote call was made.
	ErrValidation = errors.New("validation failed")
)

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

// Validation returns an error that matches ErrValidation and carries msg verbatim.
func Validation(msg string) error {
	return &validationError{msg: msg}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...interface{}) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}
