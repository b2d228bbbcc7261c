package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/employease/employease-api/internal/httputil"
	"github.com/employease/employease-api/internal/logging"
	"github.com/employease/employease-api/internal/user"
)

// Decision is the outcome of an access check. The zero value denies with 403,
// and the only way to act on a Decision is enforce, which writes the
// rejection itself.
type Decision struct {
	allowed bool
	status  int
	code    string
	reason  string
}

func Allow() Decision {
	return Decision{allowed: true}
}

func Deny(status int, code, reason string) Decision {
	return Decision{status: status, code: code, reason: reason}
}

func (d Decision) Allowed() bool { return d.allowed }

// Status is the HTTP status a denial maps to
func (d Decision) Status() int {
	if d.allowed {
		return http.StatusOK
	}
	if d.status == 0 {
		return http.StatusForbidden
	}
	return d.status
}

func (d Decision) String() string {
	if d.allowed {
		return "allow"
	}
	return fmt.Sprintf("deny %d %s: %s", d.Status(), d.code, d.reason)
}

// UserLookup is the slice of the user store the guard reads
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Guard decides identity and role checks. It never writes responses.
type Guard struct {
	users UserLookup
}

func NewGuard(users UserLookup) *Guard {
	return &Guard{users: users}
}

// CheckSelf allows only when the verified email equals email
func (g *Guard) CheckSelf(claims *TokenClaims, email string) Decision {
	if claims == nil {
		return Deny(http.StatusUnauthorized, httputil.CodeMissingAuth, "no verified claims")
	}
	if claims.Email == "" || claims.Email != email {
		return Deny(http.StatusForbidden, httputil.CodeForbidden, "token identity does not match requested email")
	}
	return Allow()
}

// CheckRole loads the caller by the verified email and allows when the
// stored role is one of roles. A missing user is denied.
func (g *Guard) CheckRole(ctx context.Context, claims *TokenClaims, roles ...user.Role) Decision {
	if claims == nil {
		return Deny(http.StatusUnauthorized, httputil.CodeMissingAuth, "no verified claims")
	}
	if len(roles) == 0 {
		return Deny(http.StatusForbidden, httputil.CodeRoleRequired, "no role accepted")
	}

	caller, err := g.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Deny(http.StatusForbidden, httputil.CodeRoleRequired, "caller has no user record")
		}
		return Deny(http.StatusInternalServerError, httputil.CodeInternalError, err.Error())
	}

	if !caller.HasRole(roles...) {
		return Deny(http.StatusForbidden, httputil.CodeRoleRequired, fmt.Sprintf("role %q not permitted", caller.Role))
	}
	return Allow()
}

// CheckSelfOrRole runs the identity match and then, when roles are given,
// the role check
func (g *Guard) CheckSelfOrRole(ctx context.Context, claims *TokenClaims, email string, roles ...user.Role) Decision {
	if d := g.CheckSelf(claims, email); !d.Allowed() {
		return d
	}
	if len(roles) == 0 {
		return Allow()
	}
	return g.CheckRole(ctx, claims, roles...)
}

// RequireSelfOrRole compares the verified email with the {param} URL
// segment and, when roles are given, requires one of them.
// It must run after RequireValidToken.
func (m *Middleware) RequireSelfOrRole(param string, roles ...user.Role) func(http.Handler) http.Handler {
	return m.enforce(func(r *http.Request) Decision {
		claims, _ := ClaimsFromContext(r.Context())
		return m.guard.CheckSelfOrRole(r.Context(), claims, chi.URLParam(r, param), roles...)
	})
}

// RequireRole requires the caller to hold one of roles.
// It must run after RequireValidToken.
func (m *Middleware) RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return m.enforce(func(r *http.Request) Decision {
		claims, _ := ClaimsFromContext(r.Context())
		return m.guard.CheckRole(r.Context(), claims, roles...)
	})
}

func (m *Middleware) enforce(decide func(r *http.Request) Decision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := decide(r)
			if !d.Allowed() {
				logger := logging.GetLoggerFromContext(r.Context())
				status := d.Status()
				if status >= http.StatusInternalServerError {
					logger.Error("access check failed", "error", d.reason)
					httputil.RespondErrorWithCode(w, "failed to check access", httputil.CodeInternalError, status)
					return
				}

				logger.Warn("access denied", "status", status, "reason", d.reason)
				message := "forbidden access"
				if status == http.StatusUnauthorized {
					message = "unauthorized access"
				}
				code := d.code
				if code == "" {
					code = httputil.CodeForbidden
				}
				httputil.RespondErrorWithCode(w, message, code, status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
