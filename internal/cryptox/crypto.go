// Package cryptox implements credential derivation for the Identity
// Directory protocol. A plaintext password never leaves the process:
// the Directory only ever sees the salted, one-way derived key.
package cryptox

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/pbkdf2"

	"github.com/avdeev/driveauth/internal/common"
)

const (
	// SaltBytes is the number of random bytes in a freshly generated salt.
	// Rendered as hex, a salt is twice this many characters.
	SaltBytes = 16

	// KeyBytes is the length of the derived key before hex encoding.
	KeyBytes = 64

	// Iterations is the PBKDF2 iteration count. The cost is deliberate:
	// it slows down offline guessing against a leaked key.
	Iterations = 100_000
)

var (
	ErrEmptyPassword = errors.New("empty password")
	ErrEmptySalt     = errors.New("empty salt")
)

// DeriveKey computes the hex-encoded verification key for a password and
// the account's salt using PBKDF2-SHA-512. It is deterministic and pure:
// identical inputs always produce the identical key. The salt is treated
// as an opaque string exactly as issued by the Directory.
func DeriveKey(password, salt string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if salt == "" {
		return "", ErrEmptySalt
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), Iterations, KeyBytes, sha512.New)
	return hex.EncodeToString(key), nil
}

// NewSalt returns a fresh cryptographically random salt, hex-encoded.
func NewSalt() string {
	return common.MakeRandHexString(SaltBytes)
}

// DeriveNew generates a salt and derives the matching key for a new
// account registration.
func DeriveNew(password string) (salt, key string, err error) {
	salt = NewSalt()
	key, err = DeriveKey(password, salt)
	if err != nil {
		return "", "", err
	}
	return salt, key, nil
}
