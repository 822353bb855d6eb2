// Package common defines sentinel errors and small helpers shared by the
// storage, service and CLI layers of coursestore. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// Validation errors.
	ErrInvalidInput = errors.New("invalid input")
	ErrEmailTaken   = errors.New("email already in use")

	// Auth errors. Wrong password, unknown email and inactive account all
	// map to ErrAuthFailure.
	ErrAuthFailure = errors.New("invalid email or password")
	ErrNoSession   = errors.New("no active session")

	// Checkout errors.
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)
