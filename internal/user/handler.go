package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/employease/employease-api/internal/httputil"
	"github.com/employease/employease-api/internal/logging"
)

// Handler contains HTTP handlers for user and employee endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRequest is the sign-up payload sent by the web client
type RegisterRequest struct {
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	PhotoURL    string  `json:"photoURL"`
	Role        string  `json:"role"`
	Designation string  `json:"designation"`
	BankAccount string  `json:"bankAccountNo"`
	Salary      float64 `json:"salary"`
}

// RegisterResponse carries the new id, or a null id and a message when the
// email is already registered
type RegisterResponse struct {
	Message    string     `json:"message,omitempty"`
	InsertedID *uuid.UUID `json:"insertedId"`
}

// UpdateRoleRequest is the body of PATCH /users/update-role/{id}
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// Register handles first-time sign-up
// @Summary      Register a user
// @Description  Insert the user unless the email already exists. Role may be employee (default) or hr.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "User"
// @Success      201 {object} RegisterResponse
// @Success      200 {object} RegisterResponse "User already exists"
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /users [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	created, err := h.service.Register(r.Context(), &User{
		Email:       req.Email,
		Name:        req.Name,
		PhotoURL:    req.PhotoURL,
		Role:        Role(req.Role),
		Designation: req.Designation,
		BankAccount: req.BankAccount,
		Salary:      req.Salary,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			logger.Info("registration skipped: user already exists")
			httputil.RespondJSON(w, RegisterResponse{Message: "user already exists"}, http.StatusOK)
		case errors.Is(err, ErrEmailRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeEmailRequired, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidEmailFormat):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		case errors.Is(err, ErrRoleNotAllowed):
			logger.Warn("registration rejected: role not allowed", "role", req.Role)
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeRoleNotAllowed, http.StatusBadRequest)
		default:
			logger.Error("registration failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	httputil.RespondJSON(w, RegisterResponse{InsertedID: &created.ID}, http.StatusCreated)
}

// List returns every user
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} User
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Router       /users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "")
}

// ListEmployees returns users whose role is employee
// @Summary      List employees
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} User
// @Router       /employees [get]
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, RoleEmployee)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, role Role) {
	users, err := h.service.List(r.Context(), role)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to list users", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list users", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	httputil.RespondJSON(w, users, http.StatusOK)
}

// Get returns one user. The key is an id when it parses as a UUID and an email otherwise.
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User id or email"
// @Success      200 {object} User
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /users/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")

	var (
		u   *User
		err error
	)
	if id, parseErr := uuid.Parse(key); parseErr == nil {
		u, err = h.service.Get(r.Context(), id)
	} else {
		u, err = h.service.GetByEmail(r.Context(), key)
	}

	h.respondUser(w, r, u, err)
}

// GetByID returns one user by id. It backs the employee details and payment pages.
// @Summary      Get a user by id
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User id"
// @Success      200 {object} User
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /employee-details/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	u, err := h.service.Get(r.Context(), id)
	h.respondUser(w, r, u, err)
}

func (h *Handler) respondUser(w http.ResponseWriter, r *http.Request, u *User, err error) {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logging.GetLoggerFromContext(r.Context()).Error("failed to get user", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	httputil.RespondJSON(w, u, http.StatusOK)
}

// PromoteToHR handles PATCH /users/hr/{id}
// @Summary      Make a user hr
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User id"
// @Success      200 {object} WriteResult
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /users/hr/{id} [patch]
func (h *Handler) PromoteToHR(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, h.service.PromoteToHR)
}

// PromoteToAdmin handles PATCH /users/admin/{id}
// @Summary      Make a user admin
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User id"
// @Success      200 {object} WriteResult
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /users/admin/{id} [patch]
func (h *Handler) PromoteToAdmin(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, h.service.PromoteToAdmin)
}

// UpdateRole handles PATCH /users/update-role/{id}
// @Summary      Set an arbitrary role
// @Description  The role string is stored as sent.
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User id"
// @Param        request body UpdateRoleRequest true "Role"
// @Success      200 {object} WriteResult
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /users/update-role/{id} [patch]
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	h.write(w, r, func(ctx context.Context, id uuid.UUID) (*WriteResult, error) {
		return h.service.SetRole(ctx, id, Role(req.Role))
	})
}

// Verify handles PATCH /employees/verify/{id}
// @Summary      Verify an employee
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User id"
// @Success      200 {object} WriteResult
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /employees/verify/{id} [patch]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, h.service.MarkVerified)
}

// Terminate handles DELETE /users/{id}
// @Summary      Remove a user
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User id"
// @Success      200 {object} WriteResult
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /users/{id} [delete]
func (h *Handler) Terminate(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, h.service.Terminate)
}

type writeFunc func(ctx context.Context, id uuid.UUID) (*WriteResult, error)

func (h *Handler) write(w http.ResponseWriter, r *http.Request, op writeFunc) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	result, err := op(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			logger.Warn("user write failed: not found", "user_id", id)
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
		case errors.Is(err, ErrRoleRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeRoleMissing, http.StatusBadRequest)
		default:
			logger.Error("user write failed: internal error", "user_id", id, "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to update user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	httputil.RespondJSON(w, result, http.StatusOK)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid user id", httputil.CodeInvalidUserID, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
