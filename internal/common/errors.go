// Package common defines shared constants, sentinel errors and small
// helpers used across driveauth components. Callers should use errors.Is
// to match the sentinel values.
package common

import "errors"

var (
	// Repository/store-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Session lifecycle errors.
	ErrNoSession    = errors.New("no such session")
	ErrInvalidToken = errors.New("invalid session token")
)
