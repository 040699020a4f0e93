// Package directory implements the client for the remote Identity
// Directory: the system of record for usernames, salts and identity
// attributes. Every outcome is an explicit tagged result matched with
// errors.Is; callers never see raw transport status codes.
package directory

import (
	"context"
	"errors"
	"fmt"
)

// Identity carries the attributes the Directory holds for an account.
type Identity struct {
	ID       string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// User is the full Directory record for an account, including the salt
// the credential key must be derived with. The salt is opaque to this
// client; it is generated locally only for new registrations.
type User struct {
	Identity
	Salt string `json:"salt"`
}

var (
	// ErrNotFound means the username does not resolve in the Directory.
	ErrNotFound = errors.New("user not found")

	// ErrRejected means the Directory refused the operation: wrong key,
	// failed validation, or an unexpected response (see StatusError).
	ErrRejected = errors.New("rejected by identity directory")

	// ErrConflict means the username or email is already in use. Callers
	// must not reveal which.
	ErrConflict = errors.New("username or email already in use")

	// ErrUnavailable means the Directory could not be reached or answered
	// with a malformed body: timeout, connection failure, bad JSON. It is
	// never folded into "user not found" or "bad credentials".
	ErrUnavailable = errors.New("identity directory unavailable")
)

// StatusError records a response status the protocol does not define.
// It matches ErrRejected under errors.Is so login handling stays uniform,
// while operators get the real status code in logs.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("directory %s: unexpected status %d", e.Op, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrRejected }

// Client is the set of Directory operations the authentication core
// consumes. All calls carry the configured bearer credential and a
// bounded timeout; none are retried automatically.
type Client interface {
	// FetchIdentity resolves a username to its Directory record,
	// including the credential salt.
	FetchIdentity(ctx context.Context, username string) (*User, error)

	// Verify submits a derived verification key for the username and
	// returns the authenticated identity on success.
	Verify(ctx context.Context, username, key string) (*Identity, error)

	// CreateAccount registers a new username with its email, salt and
	// derived key.
	CreateAccount(ctx context.Context, username, email, salt, key string) error
}
