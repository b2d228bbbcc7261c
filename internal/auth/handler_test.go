package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_IssueToken(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)
	h := NewHandler(svc, newFakeUsers())

	rec := httptest.NewRecorder()
	h.IssueToken(rec, httptest.NewRequest(http.MethodPost, "/jwt", strings.NewReader(`{"email":"a@x.com","name":"ignored"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	claims, err := svc.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestHandler_IssueTokenRejections(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)
	h := NewHandler(svc, newFakeUsers())

	for _, body := range []string{`{`, `{}`, `{"email":"   "}`} {
		rec := httptest.NewRecorder()
		h.IssueToken(rec, httptest.NewRequest(http.MethodPost, "/jwt", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestHandler_RoleStatus(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)
	h := NewHandler(svc, newFakeUsers())

	r := chi.NewRouter()
	r.Get("/users/admin/{email}", h.AdminStatus)
	r.Get("/users/hr/{email}", h.HRStatus)

	tests := []struct {
		path string
		want string
	}{
		{"/users/admin/admin@x.com", `{"admin":true}`},
		{"/users/admin/hr@x.com", `{"admin":false}`},
		{"/users/admin/ghost@x.com", `{"admin":false}`},
		{"/users/hr/hr@x.com", `{"hr":true}`},
		{"/users/hr/emp@x.com", `{"hr":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestHandler_RoleStatusStoreFailure(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)
	h := NewHandler(svc, &fakeUsers{err: errors.New("db down")})

	r := chi.NewRouter()
	r.Get("/users/admin/{email}", h.AdminStatus)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/admin/a@x.com", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
