package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/employease/employease-api/internal/database/databasetest"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(databasetest.NewSQLite(t))
}

func TestRepository_CreateIfAbsent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, &User{Email: "a@x.com", Name: "Ann", Role: RoleEmployee, Salary: 1200})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = repo.CreateIfAbsent(ctx, &User{Email: "a@x.com", Role: RoleHR})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	got, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, RoleEmployee, got.Role)
	assert.Equal(t, 1200.0, got.Salary)
}

func TestRepository_GetMissing(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ListByRole(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, u := range []*User{
		{Email: "e1@x.com", Role: RoleEmployee},
		{Email: "h1@x.com", Role: RoleHR},
		{Email: "e2@x.com", Role: RoleEmployee},
	} {
		at := base.Add(time.Duration(i) * time.Minute)
		repo.now = func() time.Time { return at }
		_, err := repo.CreateIfAbsent(ctx, u)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	employees, err := repo.List(ctx, RoleEmployee)
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "e1@x.com", employees[0].Email)
	assert.Equal(t, "e2@x.com", employees[1].Email)
}

func TestRepository_Writes(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	u, err := repo.CreateIfAbsent(ctx, &User{Email: "a@x.com", Role: RoleEmployee})
	require.NoError(t, err)

	n, err := repo.SetRole(ctx, u.ID, "team-lead")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.MarkVerified(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, Role("team-lead"), got.Role)
	assert.True(t, got.Verified)

	n, err = repo.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.SetRole(ctx, u.ID, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
