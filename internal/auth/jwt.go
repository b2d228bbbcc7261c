package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwtClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTService signs HS256 JWTs carrying the email claim
type JWTService struct {
	signingKey []byte
	duration   time.Duration
	now        Clock
}

func NewJWTService(secret []byte, duration time.Duration) (*JWTService, error) {
	key, err := deriveKey(secret, "jwt-hs256", 32)
	if err != nil {
		return nil, err
	}

	return &JWTService{
		signingKey: key,
		duration:   duration,
		now:        time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and expiry checks
func (s *JWTService) WithClock(now Clock) *JWTService {
	s.now = now
	return s
}

// Issue signs a token for email valid for the configured duration
func (s *JWTService) Issue(email string) (string, error) {
	now := s.now()
	claims := &jwtClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the claims unchanged
func (s *JWTService) Verify(tokenStr string) (*TokenClaims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	out := &TokenClaims{Email: claims.Email}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
