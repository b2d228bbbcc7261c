package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/employease/employease-api/internal/httputil"
	"github.com/employease/employease-api/internal/logging"
	"github.com/employease/employease-api/internal/user"
)

// Handler contains HTTP handlers for token issuance and role status
type Handler struct {
	tokenService TokenService
	users        UserLookup
}

func NewHandler(tokenService TokenService, users UserLookup) *Handler {
	return &Handler{tokenService: tokenService, users: users}
}

// TokenRequest is the identity the client asks a token for
type TokenRequest struct {
	Email string `json:"email"`
}

// TokenResponse carries the signed session token
type TokenResponse struct {
	Token string `json:"token"`
}

type AdminStatusResponse struct {
	Admin bool `json:"admin"`
}

type HRStatusResponse struct {
	HR bool `json:"hr"`
}

// IssueToken handles token issuance
// @Summary      Issue a session token
// @Description  Sign a one-hour token for the given email. The email is not checked against the user store.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body TokenRequest true "Identity"
// @Success      200 {object} TokenResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      429 {object} httputil.ErrorResponse
// @Router       /jwt [post]
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid token request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		httputil.RespondErrorWithCode(w, "email is required", httputil.CodeEmailRequired, http.StatusBadRequest)
		return
	}

	token, err := h.tokenService.Issue(email)
	if err != nil {
		logger.Error("failed to issue token", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to issue token", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, TokenResponse{Token: token}, http.StatusOK)
}

// AdminStatus reports whether the caller is an admin
// @Summary      Admin status
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        email path string true "Caller email"
// @Success      200 {object} AdminStatusResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Router       /users/admin/{email} [get]
func (h *Handler) AdminStatus(w http.ResponseWriter, r *http.Request) {
	ok, done := h.hasRole(w, r, user.RoleAdmin)
	if done {
		return
	}
	httputil.RespondJSON(w, AdminStatusResponse{Admin: ok}, http.StatusOK)
}

// HRStatus reports whether the caller is hr
// @Summary      HR status
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        email path string true "Caller email"
// @Success      200 {object} HRStatusResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Router       /users/hr/{email} [get]
func (h *Handler) HRStatus(w http.ResponseWriter, r *http.Request) {
	ok, done := h.hasRole(w, r, user.RoleHR)
	if done {
		return
	}
	httputil.RespondJSON(w, HRStatusResponse{HR: ok}, http.StatusOK)
}

// hasRole looks up the {email} user. An unknown email answers false.
// done is true when an error response has already been written.
func (h *Handler) hasRole(w http.ResponseWriter, r *http.Request, role user.Role) (ok bool, done bool) {
	u, err := h.users.GetByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, false
		}
		logging.GetLoggerFromContext(r.Context()).Error("failed to load user for role status", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get user", httputil.CodeInternalError, http.StatusInternalServerError)
		return false, true
	}
	return u.HasRole(role), false
}
