// Package common defines sentinel errors shared by the client and server
// sides of binsync. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Sync attempt taxonomy. Every attempt error wraps exactly one of these.
	ErrValidation  = errors.New("validation error")
	ErrIntegrity   = errors.New("integrity error")
	ErrTransport   = errors.New("transport error")
	ErrTransaction = errors.New("transaction error")

	// Ledger state errors.
	ErrAlreadyCompleted = errors.New("sync attempt already completed")

	// Configuration errors raised at construction time.
	ErrConfig = errors.New("configuration error")

	// Auth errors (missing, invalid or expired token).
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)
