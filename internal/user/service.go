package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/employease/employease-api/internal/logging"
)

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrRoleNotAllowed     = errors.New("role cannot be chosen at registration")
	ErrRoleRequired       = errors.New("role is required")
)

// Store is the credential store the lifecycle operations write through
type Store interface {
	CreateIfAbsent(ctx context.Context, u *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context, role Role) ([]*User, error)
	SetRole(ctx context.Context, id uuid.UUID, role Role) (int64, error)
	MarkVerified(ctx context.Context, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

// WriteResult mirrors the acknowledgement the web client expects after a
// single-document write
type WriteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	MatchedCount int64 `json:"matchedCount,omitempty"`
	DeletedCount int64 `json:"deletedCount,omitempty"`
}

// Service manages the user role lifecycle. Transitions do not look at the
// current role; who may call them is decided by the access guard.
type Service struct {
	store  Store
	logger *logging.Logger
}

func NewService(store Store, logger *logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Register creates a user on first sign-up. Only employee and hr may be
// self-selected; verified always starts false.
func (s *Service) Register(ctx context.Context, u *User) (*User, error) {
	email := strings.TrimSpace(u.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	// the stored email must be exactly what a token's email claim carries,
	// so display names and angle brackets are refused
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, ErrInvalidEmailFormat
	}

	role := u.Role
	if role == "" {
		role = RoleEmployee
	}
	if role != RoleEmployee && role != RoleHR {
		return nil, ErrRoleNotAllowed
	}

	candidate := *u
	candidate.Email = email
	candidate.Role = role
	candidate.Verified = false

	created, err := s.store.CreateIfAbsent(ctx, &candidate)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered", "user_id", created.ID, "role", created.Role)
	return created, nil
}

// PromoteToHR sets the role to hr regardless of the current role
func (s *Service) PromoteToHR(ctx context.Context, id uuid.UUID) (*WriteResult, error) {
	return s.setRole(ctx, id, RoleHR)
}

// PromoteToAdmin sets the role to admin regardless of the current role
func (s *Service) PromoteToAdmin(ctx context.Context, id uuid.UUID) (*WriteResult, error) {
	return s.setRole(ctx, id, RoleAdmin)
}

// SetRole persists role verbatim. Only the empty string is rejected.
func (s *Service) SetRole(ctx context.Context, id uuid.UUID, role Role) (*WriteResult, error) {
	if role == "" {
		return nil, ErrRoleRequired
	}
	if !role.IsKnown() {
		s.logger.Warn("storing unrecognised role", "user_id", id, "role", role)
	}
	return s.setRole(ctx, id, role)
}

func (s *Service) setRole(ctx context.Context, id uuid.UUID, role Role) (*WriteResult, error) {
	matched, err := s.store.SetRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	if matched == 0 {
		return nil, ErrNotFound
	}

	s.logger.Info("user role changed", "user_id", id, "role", role)
	return &WriteResult{Acknowledged: true, MatchedCount: matched}, nil
}

// MarkVerified sets verified to true. Calling it on a verified user is a no-op success.
func (s *Service) MarkVerified(ctx context.Context, id uuid.UUID) (*WriteResult, error) {
	matched, err := s.store.MarkVerified(ctx, id)
	if err != nil {
		return nil, err
	}
	if matched == 0 {
		return nil, ErrNotFound
	}

	s.logger.Info("user verified", "user_id", id)
	return &WriteResult{Acknowledged: true, MatchedCount: matched}, nil
}

// Terminate deletes the user record. Payments referencing the user remain.
func (s *Service) Terminate(ctx context.Context, id uuid.UUID) (*WriteResult, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if deleted == 0 {
		return nil, ErrNotFound
	}

	s.logger.Info("user terminated", "user_id", id)
	return &WriteResult{Acknowledged: true, DeletedCount: deleted}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.store.GetByEmail(ctx, email)
}

// List returns all users, or only those holding role when it is not empty
func (s *Service) List(ctx context.Context, role Role) ([]*User, error) {
	return s.store.List(ctx, role)
}
