package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/employease/employease-api/internal/database"
)

// Repository is the append-only payment ledger
type Repository struct {
	db  *bun.DB
	now func() time.Time
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Insert appends rec. PaidAt defaults to the insert time. A non-empty
// transaction id may appear only once.
func (r *Repository) Insert(ctx context.Context, rec *Record) (*Record, error) {
	now := r.now().UTC()
	row := mapRecordToDBPayment(rec)
	row.ID = uuid.New()
	row.CreatedAt = now
	if row.PaidAt.IsZero() {
		row.PaidAt = now
	}

	result, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrAlreadyRecorded
	}

	return mapDBPaymentToRecord(row), nil
}

// ListByEmail returns the ledger rows for email, newest first
func (r *Repository) ListByEmail(ctx context.Context, email string) ([]*Record, error) {
	var rows []database.Payment
	err := r.db.NewSelect().
		Model(&rows).
		Where("email = ?", email).
		Order("paid_at DESC", "created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	records := make([]*Record, 0, len(rows))
	for i := range rows {
		records = append(records, mapDBPaymentToRecord(&rows[i]))
	}
	return records, nil
}

func mapRecordToDBPayment(rec *Record) *database.Payment {
	return &database.Payment{
		ID:            rec.ID,
		Email:         rec.Email,
		Name:          rec.Name,
		EmployeeID:    rec.EmployeeID,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		Month:         rec.Month,
		Year:          rec.Year,
		TransactionID: rec.TransactionID,
		PaidAt:        rec.PaidAt.UTC(),
		CreatedAt:     rec.CreatedAt,
	}
}

func mapDBPaymentToRecord(row *database.Payment) *Record {
	return &Record{
		ID:            row.ID,
		Email:         row.Email,
		Name:          row.Name,
		EmployeeID:    row.EmployeeID,
		Amount:        row.Amount,
		Currency:      row.Currency,
		Month:         row.Month,
		Year:          row.Year,
		TransactionID: row.TransactionID,
		PaidAt:        row.PaidAt,
		CreatedAt:     row.CreatedAt,
	}
}
