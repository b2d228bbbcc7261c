package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/employease/employease-api/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("user already exists")
)

// Repository handles user data persistence
type Repository struct {
	db  *bun.DB
	now func() time.Time
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// CreateIfAbsent inserts u unless a user with the same email exists.
// The check and the insert are one statement against the unique email
// constraint, so concurrent registrations cannot both succeed.
func (r *Repository) CreateIfAbsent(ctx context.Context, u *User) (*User, error) {
	now := r.now().UTC()
	dbUser := mapModelToDBUser(u)
	dbUser.ID = uuid.New()
	dbUser.CreatedAt = now
	dbUser.UpdatedAt = now

	result, err := r.db.NewInsert().
		Model(dbUser).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrDuplicateEmail
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// List returns users ordered by creation time. An empty role lists everyone.
func (r *Repository) List(ctx context.Context, role Role) ([]*User, error) {
	var dbUsers []database.User
	q := r.db.NewSelect().
		Model(&dbUsers).
		Order("created_at ASC")
	if role != "" {
		q = q.Where("role = ?", string(role))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*User, 0, len(dbUsers))
	for i := range dbUsers {
		users = append(users, mapDBUserToModel(&dbUsers[i]))
	}
	return users, nil
}

// SetRole writes role verbatim and reports how many rows matched
func (r *Repository) SetRole(ctx context.Context, id uuid.UUID, role Role) (int64, error) {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("role = ?", string(role)).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to update role: %w", err)
	}

	return rowsAffected(result)
}

// MarkVerified sets the verified flag. Running it again still matches the row.
func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("verified = ?", true).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to mark user as verified: %w", err)
	}

	return rowsAffected(result)
}

// Delete removes the user row only; payments referencing it are left alone
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}

	return rowsAffected(result)
}

func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:          dbu.ID,
		Email:       dbu.Email,
		Name:        dbu.Name,
		PhotoURL:    dbu.PhotoURL,
		Role:        Role(dbu.Role),
		Verified:    dbu.Verified,
		Designation: dbu.Designation,
		BankAccount: dbu.BankAccount,
		Salary:      dbu.Salary,
		CreatedAt:   dbu.CreatedAt,
		UpdatedAt:   dbu.UpdatedAt,
	}
}

func mapModelToDBUser(u *User) *database.User {
	return &database.User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		PhotoURL:    u.PhotoURL,
		Role:        string(u.Role),
		Verified:    u.Verified,
		Designation: u.Designation,
		BankAccount: u.BankAccount,
		Salary:      u.Salary,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
