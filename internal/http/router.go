package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/employease/employease-api/internal/auth"
	"github.com/employease/employease-api/internal/config"
	"github.com/employease/employease-api/internal/httputil"
	"github.com/employease/employease-api/internal/logging"
	"github.com/employease/employease-api/internal/payment"
	"github.com/employease/employease-api/internal/ratelimit"
	"github.com/employease/employease-api/internal/user"
)

// Handlers groups the domain handlers mounted by the router
type Handlers struct {
	Auth    *auth.Handler
	Users   *user.Handler
	Payment *payment.Handler
}

// NewRouter creates and configures the HTTP router. limiter may be nil.
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, limiter *ratelimit.Limiter, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", payment.IdempotencyHeader},
			ExposedHeaders:   []string{"Content-Length", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Use(SecurityHeaders(!cfg.Server.IsDevelopment()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	// forwarded headers are caller-controlled unless a proxy rewrites them
	if cfg.Server.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)

	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	limit := func(purpose string) func(http.Handler) http.Handler {
		if limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return limiter.Middleware(purpose)
	}

	// Public
	r.With(limit("jwt")).Post("/jwt", h.Auth.IssueToken)
	r.With(limit("register")).Post("/users", h.Users.Register)
	r.Post("/payments", h.Payment.Record)
	r.Post("/create-payment-intent", h.Payment.CreateIntent)

	// Token required
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireValidToken)

		// Caller may only ask about themselves
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireSelfOrRole("email"))
			r.Get("/users/admin/{email}", h.Auth.AdminStatus)
			r.Get("/users/hr/{email}", h.Auth.HRStatus)
			r.Get("/payments/{email}", h.Payment.History)
		})

		r.Get("/users/{id}", h.Users.Get)
		r.Get("/employee-details/{id}", h.Users.GetByID)
		r.Get("/payment/{id}", h.Users.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireRole(user.RoleHR, user.RoleAdmin))
			r.Get("/employees", h.Users.ListEmployees)
			r.Patch("/employees/verify/{id}", h.Users.Verify)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireRole(user.RoleAdmin))
			r.Get("/users", h.Users.List)
			r.Patch("/users/hr/{id}", h.Users.PromoteToHR)
			r.Patch("/users/admin/{id}", h.Users.PromoteToAdmin)
			r.Patch("/users/update-role/{id}", h.Users.UpdateRole)
			r.Delete("/users/{id}", h.Users.Terminate)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "employease is running"}, http.StatusOK)
}
