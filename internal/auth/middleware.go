package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/employease/employease-api/internal/httputil"
	"github.com/employease/employease-api/internal/logging"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const ClaimsContextKey ContextKey = "token_claims"

// Middleware runs the access checks in front of protected routes
type Middleware struct {
	tokenService TokenService
	guard        *Guard
}

func NewMiddleware(tokenService TokenService, guard *Guard) *Middleware {
	return &Middleware{tokenService: tokenService, guard: guard}
}

// RequireValidToken verifies the bearer token and stores its claims in the
// request context. Any failure ends the request with 401.
func (m *Middleware) RequireValidToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		token, err := bearerToken(r)
		if err != nil {
			code := httputil.CodeMissingAuth
			if !errors.Is(err, ErrMissingToken) {
				code = httputil.CodeInvalidAuthHeader
			}
			logger.Warn("unauthorized: no usable bearer token", "error", err.Error())
			httputil.RespondErrorWithCode(w, "unauthorized access", code, http.StatusUnauthorized)
			return
		}

		claims, err := m.tokenService.Verify(token)
		if err != nil {
			code := httputil.CodeInvalidToken
			if errors.Is(err, ErrExpiredToken) {
				code = httputil.CodeTokenExpired
			}
			logger.Warn("unauthorized: token rejected", "error", err.Error())
			httputil.RespondErrorWithCode(w, "unauthorized access", code, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

var errBadAuthHeader = errors.New("authorization header must be 'Bearer <token>'")

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errBadAuthHeader
	}
	return parts[1], nil
}

// WithClaims returns a copy of ctx carrying verified claims
func WithClaims(ctx context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// ClaimsFromContext returns the claims stored by RequireValidToken
func ClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*TokenClaims)
	return claims, ok && claims != nil
}
