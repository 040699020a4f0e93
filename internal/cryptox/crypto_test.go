package cryptox

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	key1, err := DeriveKey("correct-password!", "abc123")
	require.NoError(t, err)
	key2, err := DeriveKey("correct-password!", "abc123")
	require.NoError(t, err)

	require.Equal(t, key1, key2)
}

func TestDeriveKey_Length(t *testing.T) {
	key, err := DeriveKey("correct-password!", "abc123")
	require.NoError(t, err)

	// 64 bytes, hex-encoded
	require.Len(t, key, 2*KeyBytes)
	_, err = hex.DecodeString(key)
	require.NoError(t, err)
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	key1, err := DeriveKey("correct-password!", "salt-1")
	require.NoError(t, err)
	key2, err := DeriveKey("correct-password!", "salt-2")
	require.NoError(t, err)

	require.NotEqual(t, key1, key2)
}

func TestDeriveKey_DifferentPasswords(t *testing.T) {
	key1, err := DeriveKey("password-one!", "abc123")
	require.NoError(t, err)
	key2, err := DeriveKey("password-two!", "abc123")
	require.NoError(t, err)

	require.NotEqual(t, key1, key2)
}

func TestDeriveKey_MalformedInputs(t *testing.T) {
	_, err := DeriveKey("", "abc123")
	require.ErrorIs(t, err, ErrEmptyPassword)

	_, err = DeriveKey("correct-password!", "")
	require.ErrorIs(t, err, ErrEmptySalt)
}

func TestNewSalt(t *testing.T) {
	s1 := NewSalt()
	s2 := NewSalt()

	require.Len(t, s1, 2*SaltBytes)
	require.NotEqual(t, s1, s2)

	_, err := hex.DecodeString(s1)
	require.NoError(t, err)
}

func TestDeriveNew(t *testing.T) {
	salt, key, err := DeriveNew("a-long-enough-password")
	require.NoError(t, err)

	// the returned key must be reproducible from the returned salt
	again, err := DeriveKey("a-long-enough-password", salt)
	require.NoError(t, err)
	require.Equal(t, key, again)

	_, _, err = DeriveNew("")
	require.ErrorIs(t, err, ErrEmptyPassword)
}
