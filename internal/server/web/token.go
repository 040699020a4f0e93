package web

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avdeev/driveauth/internal/common"
)

// sessionClaims binds a session ID into a signed cookie token. The token
// proves nothing about identity by itself; privileges live in the
// server-side session record it points at.
type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

func generateSessionToken(sessionID string, secret []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		SessionID: sessionID,
	})
	return token.SignedString(secret)
}

func sessionIDFromToken(tokenString string, secret []byte) (string, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return "", common.ErrInvalidToken
	}
	if !token.Valid || claims.SessionID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.SessionID, nil
}
