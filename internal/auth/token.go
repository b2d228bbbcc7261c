package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is a kind of ErrInvalidToken
	ErrExpiredToken = fmt.Errorf("%w: token has expired", ErrInvalidToken)
)

// TokenClaims is the identity a session token asserts. Claims are trusted as
// decoded once the token verifies; they are not re-read from the user store.
type TokenClaims struct {
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// TokenService issues and verifies session tokens.
// Implementations include JWTService (HS256) and PasetoService (PASETO v4.local).
type TokenService interface {
	Issue(email string) (string, error)
	Verify(tokenStr string) (*TokenClaims, error)
}

// Clock returns the current time; tests substitute a fixed one
type Clock func() time.Time
