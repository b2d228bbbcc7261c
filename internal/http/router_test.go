package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/employease/employease-api/internal/auth"
	"github.com/employease/employease-api/internal/config"
	"github.com/employease/employease-api/internal/database/databasetest"
	"github.com/employease/employease-api/internal/logging"
	"github.com/employease/employease-api/internal/payment"
	"github.com/employease/employease-api/internal/ratelimit"
	"github.com/employease/employease-api/internal/user"
)

type stubGateway struct {
	mu    sync.Mutex
	calls int
}

func (g *stubGateway) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return &payment.Intent{ID: "pi_test", ClientSecret: "pi_test_secret", Amount: req.Amount, Currency: req.Currency}, nil
}

func (g *stubGateway) GetIntent(_ context.Context, id string) (*payment.Intent, error) {
	return &payment.Intent{ID: id}, nil
}

type testAPI struct {
	handler http.Handler
	tokens  auth.TokenService
	users   *user.Repository
	ids     map[string]uuid.UUID
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithConfig(t, &config.Config{Server: config.ServerConfig{Env: "test"}})
}

func newTestAPIWithConfig(t *testing.T, cfg *config.Config) *testAPI {
	t.Helper()
	ctx := context.Background()

	db := databasetest.NewSQLite(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := logging.Discard()

	tokens, err := auth.NewJWTService([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)

	userRepo := user.NewRepository(db)
	paymentSvc := payment.NewService(&stubGateway{}, payment.NewRepository(db), payment.NewRedisIdempotencyStore(rdb, time.Hour), payment.Options{}, logger)

	router := NewRouter(cfg, Handlers{
		Auth:    auth.NewHandler(tokens, userRepo),
		Users:   user.NewHandler(user.NewService(userRepo, logger)),
		Payment: payment.NewHandler(paymentSvc),
	}, auth.NewMiddleware(tokens, auth.NewGuard(userRepo)), ratelimit.NewLimiter(rdb, 3, time.Minute), logger)

	api := &testAPI{handler: router, tokens: tokens, users: userRepo, ids: map[string]uuid.UUID{}}
	for email, role := range map[string]user.Role{
		"admin@x.com": user.RoleAdmin,
		"hr@x.com":    user.RoleHR,
		"emp@x.com":   user.RoleEmployee,
	} {
		u, err := userRepo.CreateIfAbsent(ctx, &user.User{Email: email, Role: role})
		require.NoError(t, err)
		api.ids[email] = u.ID
	}
	return api
}

func (a *testAPI) do(t *testing.T, method, path, as, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if as != "" {
		token, err := a.tokens.Issue(as)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouter_AccessMatrix(t *testing.T) {
	api := newTestAPI(t)
	empID := api.ids["emp@x.com"].String()

	tests := []struct {
		name   string
		method string
		path   string
		as     string
		status int
	}{
		{"admin status needs token", http.MethodGet, "/users/admin/admin@x.com", "", http.StatusUnauthorized},
		{"admin status self", http.MethodGet, "/users/admin/admin@x.com", "admin@x.com", http.StatusOK},
		{"admin status other", http.MethodGet, "/users/admin/emp@x.com", "admin@x.com", http.StatusForbidden},
		{"hr status self", http.MethodGet, "/users/hr/hr@x.com", "hr@x.com", http.StatusOK},
		{"payments other", http.MethodGet, "/payments/emp@x.com", "hr@x.com", http.StatusForbidden},
		{"payments self", http.MethodGet, "/payments/emp@x.com", "emp@x.com", http.StatusOK},
		{"list users employee", http.MethodGet, "/users", "emp@x.com", http.StatusForbidden},
		{"list users admin", http.MethodGet, "/users", "admin@x.com", http.StatusOK},
		{"list employees hr", http.MethodGet, "/employees", "hr@x.com", http.StatusOK},
		{"get user by id", http.MethodGet, "/users/" + empID, "emp@x.com", http.StatusOK},
		{"get user by email", http.MethodGet, "/users/hr@x.com", "emp@x.com", http.StatusOK},
		{"employee details", http.MethodGet, "/employee-details/" + empID, "hr@x.com", http.StatusOK},
		{"payment target", http.MethodGet, "/payment/" + empID, "hr@x.com", http.StatusOK},
		{"missing user", http.MethodGet, "/employee-details/" + uuid.NewString(), "hr@x.com", http.StatusNotFound},
		{"promote hr by employee", http.MethodPatch, "/users/hr/" + empID, "emp@x.com", http.StatusForbidden},
		{"promote admin by hr", http.MethodPatch, "/users/admin/" + empID, "hr@x.com", http.StatusForbidden},
		{"promote without token", http.MethodPatch, "/users/admin/" + empID, "", http.StatusUnauthorized},
		{"verify by employee", http.MethodPatch, "/employees/verify/" + empID, "emp@x.com", http.StatusForbidden},
		{"verify by hr", http.MethodPatch, "/employees/verify/" + empID, "hr@x.com", http.StatusOK},
		{"delete by hr", http.MethodDelete, "/users/" + empID, "hr@x.com", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.as, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_RoleLifecycle(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	empID := api.ids["emp@x.com"]

	rec := api.do(t, http.MethodPatch, "/users/hr/"+empID.String(), "admin@x.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := api.users.GetByID(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleHR, got.Role)

	rec = api.do(t, http.MethodPatch, "/users/update-role/"+empID.String(), "admin@x.com", `{"role":"fired"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err = api.users.GetByID(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, user.Role("fired"), got.Role)

	rec = api.do(t, http.MethodPatch, "/users/admin/"+empID.String(), "admin@x.com", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// the promoted user now passes the admin gate
	rec = api.do(t, http.MethodGet, "/users", "emp@x.com", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodDelete, "/users/"+empID.String(), "admin@x.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, err = api.users.GetByID(ctx, empID)
	assert.ErrorIs(t, err, user.ErrNotFound)

	// a deleted caller holds a valid token but no role
	rec = api.do(t, http.MethodGet, "/users", "emp@x.com", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodDelete, "/users/"+empID.String(), "admin@x.com", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_TokenAndRateLimit(t *testing.T) {
	api := newTestAPI(t)

	for i := 0; i < 3; i++ {
		rec := api.do(t, http.MethodPost, "/jwt", "", `{"email":"emp@x.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp auth.TokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		claims, err := api.tokens.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "emp@x.com", claims.Email)
	}

	rec := api.do(t, http.MethodPost, "/jwt", "", `{"email":"emp@x.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// registration has its own budget
	rec = api.do(t, http.MethodPost, "/users", "", `{"email":"new@x.com","name":"New"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do(t, http.MethodPost, "/users", "", `{"email":"new@x.com","name":"New"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"user already exists","insertedId":null}`, rec.Body.String())
}

func postTokenFrom(api *testAPI, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/jwt", strings.NewReader(`{"email":"emp@x.com"}`))
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouter_RateLimitIgnoresForwardedHeaders(t *testing.T) {
	api := newTestAPI(t)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, postTokenFrom(api, fmt.Sprintf("203.0.113.%d", i)))
	}
	// a fresh X-Forwarded-For does not buy a fresh budget
	assert.Equal(t, http.StatusTooManyRequests, postTokenFrom(api, "203.0.113.99"))
}

func TestRouter_RateLimitTrustedProxy(t *testing.T) {
	api := newTestAPIWithConfig(t, &config.Config{Server: config.ServerConfig{Env: "test", TrustProxyHeaders: true}})

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, postTokenFrom(api, "198.51.100.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, postTokenFrom(api, "198.51.100.1"))
	assert.Equal(t, http.StatusOK, postTokenFrom(api, "198.51.100.2"))
}

func TestRouter_PaymentFlow(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/create-payment-intent", "", `{"price":19.99}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clientSecret":"pi_test_secret"}`, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/create-payment-intent", "", `{"price":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/payments", "", `{"email":"emp@x.com","amount":19.99,"transactionId":"pi_test","month":"June","year":2026}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, "/payments/emp@x.com", "emp@x.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []payment.Record
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, "pi_test", history[0].TransactionID)
}
