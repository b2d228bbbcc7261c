// Package databasetest opens throwaway in-memory databases carrying the
// production schema.
package databasetest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/employease/employease-api/internal/database"
)

// NewSQLite returns a bun DB over a private in-memory SQLite database with
// EnsureSchema applied. It is closed when the test ends.
func NewSQLite(t *testing.T) *bun.DB {
	t.Helper()

	sqlDB, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	require.NoError(t, database.EnsureSchema(context.Background(), db))

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}
