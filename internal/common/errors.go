// Package common defines shared constants and sentinel errors used across
// storymap components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Input rejected before any I/O was attempted.
	ErrValidation = errors.New("validation error")

	// Auth errors (missing or invalid session token).
	ErrUnauthorized = errors.New("not authenticated")
	ErrTokenExpired = errors.New("token expired")

	// Transport errors (fetch failure, timeout, offline).
	ErrNetwork = errors.New("network error")

	// Local store unavailable. Store wrappers degrade to empty results
	// instead of letting this escape; it exists for logging and tests.
	ErrStorage = errors.New("storage unavailable")

	ErrInternal = errors.New("internal error")
)
