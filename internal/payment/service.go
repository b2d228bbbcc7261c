package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/employease/employease-api/internal/logging"
)

var (
	ErrInvalidAmount       = errors.New("price must be a positive amount")
	ErrGateway             = errors.New("payment gateway failure")
	ErrIdempotencyConflict = errors.New("idempotency key already used for a different amount")
	ErrTransactionRequired = errors.New("transactionId is required")
	ErrIntentNotSettled    = errors.New("payment intent has not settled for this amount")
	ErrAlreadyRecorded     = errors.New("payment already recorded for this transaction")
)

// ToMinorUnits converts a price in currency units to the integer minor units
// the gateway charges, rounding to the nearest cent
func ToMinorUnits(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, ErrInvalidAmount
	}
	cents := math.Round(price * 100)
	if cents < 1 || cents >= math.MaxInt64 {
		return 0, ErrInvalidAmount
	}
	return int64(cents), nil
}

// Ledger is the persisted payment history
type Ledger interface {
	Insert(ctx context.Context, rec *Record) (*Record, error)
	ListByEmail(ctx context.Context, email string) ([]*Record, error)
}

// IdempotencyStore remembers intents created under a client key
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (*CachedIntent, bool, error)
	Save(ctx context.Context, key string, cached CachedIntent) error
}

// Options holds the payment settings taken from configuration
type Options struct {
	Currency string
	// VerifyIntents checks the charge with the gateway before recording it
	VerifyIntents bool
}

// Service bridges the gateway and the ledger
type Service struct {
	gateway     Gateway
	ledger      Ledger
	idempotency IdempotencyStore
	opts        Options
	logger      *logging.Logger
}

// NewService creates the payment service. idempotency may be nil, in which
// case keys are only forwarded to the gateway.
func NewService(gateway Gateway, ledger Ledger, idempotency IdempotencyStore, opts Options, logger *logging.Logger) *Service {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &Service{
		gateway:     gateway,
		ledger:      ledger,
		idempotency: idempotency,
		opts:        opts,
		logger:      logger,
	}
}

// CreatePaymentIntent creates a card intent for price and returns only its
// client secret
func (s *Service) CreatePaymentIntent(ctx context.Context, price float64, idempotencyKey string) (string, error) {
	amount, err := ToMinorUnits(price)
	if err != nil {
		return "", err
	}

	if idempotencyKey != "" && s.idempotency != nil {
		cached, ok, err := s.idempotency.Lookup(ctx, idempotencyKey)
		switch {
		case err != nil:
			s.logger.Warn("idempotency lookup failed, relying on gateway key", "error", err.Error())
		case ok && cached.Amount != amount:
			return "", ErrIdempotencyConflict
		case ok:
			s.logger.Debug("payment intent replayed", "intent_id", cached.IntentID)
			return cached.ClientSecret, nil
		}
	}

	intent, err := s.gateway.CreateIntent(ctx, IntentRequest{
		Amount:         amount,
		Currency:       s.opts.Currency,
		IdempotencyKey: idempotencyKey,
	})
	if errors.Is(err, ErrIdempotencyConflict) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if idempotencyKey != "" && s.idempotency != nil {
		err := s.idempotency.Save(ctx, idempotencyKey, CachedIntent{
			Amount:       amount,
			IntentID:     intent.ID,
			ClientSecret: intent.ClientSecret,
		})
		if err != nil {
			s.logger.Warn("failed to cache payment intent", "intent_id", intent.ID, "error", err.Error())
		}
	}

	s.logger.Info("payment intent created", "intent_id", intent.ID, "amount", amount, "currency", s.opts.Currency)
	return intent.ClientSecret, nil
}

// RecordPayment appends rec to the ledger. When intent verification is on,
// the referenced intent must have succeeded for the same amount and currency.
func (s *Service) RecordPayment(ctx context.Context, rec *Record) (*Record, error) {
	entry := *rec
	if entry.Currency == "" {
		entry.Currency = s.opts.Currency
	}

	if s.opts.VerifyIntents {
		if err := s.verify(ctx, &entry); err != nil {
			return nil, err
		}
	}

	stored, err := s.ledger.Insert(ctx, &entry)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded", "payment_id", stored.ID, "transaction_id", stored.TransactionID)
	return stored, nil
}

func (s *Service) verify(ctx context.Context, rec *Record) error {
	if strings.TrimSpace(rec.TransactionID) == "" {
		return ErrTransactionRequired
	}

	amount, err := ToMinorUnits(rec.Amount)
	if err != nil {
		return err
	}

	intent, err := s.gateway.GetIntent(ctx, rec.TransactionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if intent.Status != StatusSucceeded {
		return fmt.Errorf("%w: status %s", ErrIntentNotSettled, intent.Status)
	}
	if intent.Amount != amount || !strings.EqualFold(intent.Currency, rec.Currency) {
		return fmt.Errorf("%w: charged %d %s", ErrIntentNotSettled, intent.Amount, intent.Currency)
	}
	return nil
}

// History returns the ledger rows for email, newest first
func (s *Service) History(ctx context.Context, email string) ([]*Record, error) {
	return s.ledger.ListByEmail(ctx, email)
}
