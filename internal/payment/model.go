package payment

import (
	"time"

	"github.com/google/uuid"
)

// StatusSucceeded is the gateway status of a settled intent
const StatusSucceeded = "succeeded"

// Record is a ledger entry. Amount is in currency units, not minor units.
type Record struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	EmployeeID    *uuid.UUID `json:"employeeId,omitempty"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Month         string     `json:"month"`
	Year          int        `json:"year"`
	TransactionID string     `json:"transactionId"`
	PaidAt        time.Time  `json:"paidAt"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// IntentRequest asks the gateway for a card-only intent
type IntentRequest struct {
	Amount         int64
	Currency       string
	IdempotencyKey string
}

// Intent is the part of the gateway's intent object this service reads
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
}
