// Package common defines shared sentinel errors and small helpers used across
// lockbox layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation error")

	// ErrLocked is returned when an operation needs the master key but the
	// session has been locked or logged out.
	ErrLocked = errors.New("session locked")
)
