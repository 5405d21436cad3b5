package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackwithabx/CDAC-Dependency-check/internal/domain/auth"
)

type stubValidator struct {
	identity auth.Identity
	err      error
}

func (v stubValidator) Validate(ctx context.Context, credential string) (auth.Identity, error) {
	return v.identity, v.err
}

func TestSessionAuth(t *testing.T) {
	t.Parallel()

	var got auth.Identity
	handler := SessionAuth(stubValidator{identity: auth.Identity{Username: "alice", Role: auth.RoleUser}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentity(r.Context())
			require.True(t, ok)
			got = id
		}))

	req := httptest.NewRequest(http.MethodGet, "/scan_history", nil)
	req.Header.Set("Authorization", "Bearer some-credential")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", got.Username)
}

func TestSessionAuthMissingHeader(t *testing.T) {
	t.Parallel()

	handler := SessionAuth(stubValidator{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a credential")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scan_history", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionAuthRejectedCredential(t *testing.T) {
	t.Parallel()

	handler := SessionAuth(stubValidator{err: auth.ErrExpired})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run with a rejected credential")
		}))

	req := httptest.NewRequest(http.MethodGet, "/scan_history", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEngineKeyAuth(t *testing.T) {
	t.Parallel()

	ok := false
	handler := EngineKeyAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/internal/scans/x/progress", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.True(t, ok)

	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEngineKeyAuthRefusesWhenUnconfigured(t *testing.T) {
	t.Parallel()

	handler := EngineKeyAuth("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a configured key")
	}))

	req := httptest.NewRequest(http.MethodPost, "/internal/scans/x/progress", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
