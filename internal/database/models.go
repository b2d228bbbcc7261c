package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the users table row. Email carries the unique constraint that
// registration relies on for insert-if-absent.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	Email       string    `bun:"email,notnull,unique"`
	Name        string    `bun:"name,notnull"`
	PhotoURL    string    `bun:"photo_url,notnull"`
	Role        string    `bun:"role,notnull"`
	Verified    bool      `bun:"verified,notnull"`
	Designation string    `bun:"designation,notnull"`
	BankAccount string    `bun:"bank_account,notnull"`
	Salary      float64   `bun:"salary,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

// Payment is a ledger row. EmployeeID is not a foreign key: removing a user
// leaves their payments in place.
type Payment struct {
	bun.BaseModel `bun:"table:payments,alias:p"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid"`
	Email         string     `bun:"email,notnull"`
	Name          string     `bun:"name,notnull"`
	EmployeeID    *uuid.UUID `bun:"employee_id,type:uuid,nullzero"`
	Amount        float64    `bun:"amount,notnull"`
	Currency      string     `bun:"currency,notnull"`
	Month         string     `bun:"month,notnull"`
	Year          int        `bun:"year,notnull"`
	TransactionID string     `bun:"transaction_id,notnull"`
	PaidAt        time.Time  `bun:"paid_at,notnull"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
}
