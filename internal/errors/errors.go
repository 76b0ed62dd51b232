package errors

import (
	"errors"
	"fmt"
)

// Error kinds shared by every domain package. Stores and services wrap these
// so the HTTP layer can map them without knowing which package raised them.
var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrExpired               = errors.New("expired")
	ErrInvalidState          = errors.New("invalid state")
	ErrInvalidInput          = errors.New("invalid input")
	ErrTenantSuspended       = errors.New("tenant suspended")
	ErrSystemTenantProtected = errors.New("system tenant protected")
	ErrInternal              = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is a passthrough so callers only import one errors package.
func New(msg string) error {
	return errors.New(msg)
}
