package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/employease/employease-api/internal/database/databasetest"
	"github.com/employease/employease-api/internal/logging"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		price float64
		want  int64
		err   bool
	}{
		{19.99, 1999, false},
		{0.29, 29, false},
		{100, 10000, false},
		{0.01, 1, false},
		{0, 0, true},
		{-5, 0, true},
		{0.004, 0, true},
		{math.NaN(), 0, true},
		{math.Inf(1), 0, true},
		{math.Inf(-1), 0, true},
	}

	for _, tt := range tests {
		got, err := ToMinorUnits(tt.price)
		if tt.err {
			assert.ErrorIs(t, err, ErrInvalidAmount, "price %v", tt.price)
			continue
		}
		require.NoError(t, err, "price %v", tt.price)
		assert.Equal(t, tt.want, got, "price %v", tt.price)
	}
}

type serviceFixture struct {
	svc     *Service
	gateway *fakeGateway
	redis   *miniredis.Miniredis
}

func newServiceFixture(t *testing.T, opts Options) *serviceFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	gateway := newFakeGateway()
	svc := NewService(
		gateway,
		NewRepository(databasetest.NewSQLite(t)),
		NewRedisIdempotencyStore(client, time.Hour),
		opts,
		logging.Discard(),
	)
	return &serviceFixture{svc: svc, gateway: gateway, redis: mr}
}

func TestService_CreatePaymentIntent(t *testing.T) {
	f := newServiceFixture(t, Options{})
	ctx := context.Background()

	secret, err := f.svc.CreatePaymentIntent(ctx, 19.99, "")
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", secret)

	require.Len(t, f.gateway.created, 1)
	assert.Equal(t, IntentRequest{Amount: 1999, Currency: "usd"}, f.gateway.created[0])
}

func TestService_CreatePaymentIntentInvalidAmount(t *testing.T) {
	f := newServiceFixture(t, Options{})

	for _, price := range []float64{0, -5, math.NaN()} {
		_, err := f.svc.CreatePaymentIntent(context.Background(), price, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Zero(t, f.gateway.calls())
}

func TestService_CreatePaymentIntentIdempotent(t *testing.T) {
	f := newServiceFixture(t, Options{})
	ctx := context.Background()

	first, err := f.svc.CreatePaymentIntent(ctx, 25, "order-7")
	require.NoError(t, err)
	assert.Equal(t, "order-7", f.gateway.created[0].IdempotencyKey)

	replay, err := f.svc.CreatePaymentIntent(ctx, 25, "order-7")
	require.NoError(t, err)
	assert.Equal(t, first, replay)
	assert.Equal(t, 1, f.gateway.calls())

	_, err = f.svc.CreatePaymentIntent(ctx, 30, "order-7")
	assert.ErrorIs(t, err, ErrIdempotencyConflict)
	assert.Equal(t, 1, f.gateway.calls())

	other, err := f.svc.CreatePaymentIntent(ctx, 25, "order-8")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
	assert.Equal(t, 2, f.gateway.calls())
}

func TestService_CreatePaymentIntentRedisDown(t *testing.T) {
	f := newServiceFixture(t, Options{})
	f.redis.Close()

	secret, err := f.svc.CreatePaymentIntent(context.Background(), 10, "order-1")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Equal(t, "order-1", f.gateway.created[0].IdempotencyKey)
}

func TestService_CreatePaymentIntentGatewayFailure(t *testing.T) {
	f := newServiceFixture(t, Options{})
	f.gateway.err = errors.New("card_declined")

	_, err := f.svc.CreatePaymentIntent(context.Background(), 10, "")
	assert.ErrorIs(t, err, ErrGateway)
}

func TestService_CreatePaymentIntentGatewayKeyConflict(t *testing.T) {
	f := newServiceFixture(t, Options{})
	// the cache has no entry, so only the gateway knows the key was used
	f.gateway.err = fmt.Errorf("%w: key reused", ErrIdempotencyConflict)

	_, err := f.svc.CreatePaymentIntent(context.Background(), 10, "order-7")
	assert.ErrorIs(t, err, ErrIdempotencyConflict)
	assert.NotErrorIs(t, err, ErrGateway)
}

func TestService_RecordPaymentTrustsClientByDefault(t *testing.T) {
	f := newServiceFixture(t, Options{})
	ctx := context.Background()

	stored, err := f.svc.RecordPayment(ctx, &Record{Email: "a@x.com", Amount: 500, Month: "March", Year: 2026, TransactionID: "pi_unknown"})
	require.NoError(t, err)
	assert.Equal(t, "usd", stored.Currency)
	assert.False(t, stored.PaidAt.IsZero())

	history, err := f.svc.History(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, stored.ID, history[0].ID)
}

func TestService_RecordPaymentVerifiesIntent(t *testing.T) {
	f := newServiceFixture(t, Options{VerifyIntents: true})
	ctx := context.Background()

	_, err := f.svc.CreatePaymentIntent(ctx, 19.99, "")
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, &Record{Email: "a@x.com", Amount: 19.99})
	assert.ErrorIs(t, err, ErrTransactionRequired)

	_, err = f.svc.RecordPayment(ctx, &Record{Email: "a@x.com", Amount: 19.99, TransactionID: "pi_1"})
	assert.ErrorIs(t, err, ErrIntentNotSettled, "intent not yet succeeded")

	f.gateway.settle("pi_1")

	_, err = f.svc.RecordPayment(ctx, &Record{Email: "a@x.com", Amount: 50, TransactionID: "pi_1"})
	assert.ErrorIs(t, err, ErrIntentNotSettled, "amount mismatch")

	_, err = f.svc.RecordPayment(ctx, &Record{Email: "a@x.com", Amount: 19.99, Currency: "eur", TransactionID: "pi_1"})
	assert.ErrorIs(t, err, ErrIntentNotSettled, "currency mismatch")

	_, err = f.svc.RecordPayment(ctx, &Record{Email: "a@x.com", Amount: 19.99, TransactionID: "pi_missing"})
	assert.ErrorIs(t, err, ErrGateway)

	stored, err := f.svc.RecordPayment(ctx, &Record{Email: "a@x.com", Amount: 19.99, TransactionID: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", stored.TransactionID)

	// a settled intent pays out once
	_, err = f.svc.RecordPayment(ctx, &Record{Email: "a@x.com", Amount: 19.99, TransactionID: "pi_1"})
	assert.ErrorIs(t, err, ErrAlreadyRecorded)
	_, err = f.svc.RecordPayment(ctx, &Record{Email: "b@x.com", Amount: 19.99, TransactionID: "pi_1"})
	assert.ErrorIs(t, err, ErrAlreadyRecorded)

	history, err := f.svc.History(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	history, err = f.svc.History(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Empty(t, history)
}
