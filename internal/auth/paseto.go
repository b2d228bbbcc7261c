package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

var errPasetoExpired = errors.New("this token has expired")

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	duration     time.Duration
	now          Clock
}

func NewPasetoService(secret []byte, duration time.Duration) (*PasetoService, error) {
	raw, err := deriveKey(secret, "paseto-v4-local", 32)
	if err != nil {
		return nil, err
	}

	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
		duration:     duration,
		now:          time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and expiry checks
func (s *PasetoService) WithClock(now Clock) *PasetoService {
	s.now = now
	return s
}

// Issue generates a PASETO v4.local token for email
func (s *PasetoService) Issue(email string) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(s.duration))
	token.SetString("email", email)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// Verify decrypts a PASETO v4.local token and returns the claims
func (s *PasetoService) Verify(tokenStr string) (*TokenClaims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(s.notExpired)

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		if errors.Is(err, errPasetoExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	email, err := token.GetString("email")
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		Email:     email,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *PasetoService) notExpired(token paseto.Token) error {
	exp, err := token.GetExpiration()
	if err != nil {
		return err
	}
	if s.now().After(exp) {
		return errPasetoExpired
	}
	return nil
}
