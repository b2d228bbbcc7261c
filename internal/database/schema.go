package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// EnsureSchema creates the tables and indexes when they do not exist yet.
// It is safe to run on every start.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*User)(nil),
		(*Payment)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		model  any
		name   string
		column string
		unique bool
		where  string
	}{
		{model: (*User)(nil), name: "users_role_idx", column: "role"},
		{model: (*Payment)(nil), name: "payments_email_idx", column: "email"},
		// one ledger row per gateway charge; rows without a transaction id are not constrained
		{model: (*Payment)(nil), name: "payments_transaction_id_key", column: "transaction_id", unique: true, where: "transaction_id <> ''"},
	}

	for _, idx := range indexes {
		q := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			IfNotExists().
			Column(idx.column)
		if idx.unique {
			q = q.Unique()
		}
		if idx.where != "" {
			q = q.Where(idx.where)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
