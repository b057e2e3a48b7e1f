package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reefops/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-which-is-long-enough-0123456789"

func TestTokenRoundTrip(t *testing.T) {
	token, err := NewToken(testSecret, "u1", "manager", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, "reefops", claims.Issuer)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewToken(testSecret, "u1", "", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("some-other-secret-that-is-also-long", token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := NewToken(testSecret, "u1", "", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, token)
	assert.Error(t, err)
}

func TestMiddlewareRequiresToken(t *testing.T) {
	cfg := models.AuthConfig{JWTSecret: testSecret, RequireAuth: true}
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/messages", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	cfg := models.AuthConfig{JWTSecret: testSecret, RequireAuth: true}
	token, err := NewToken(testSecret, "u42", "instructor", time.Hour)
	require.NoError(t, err)

	var gotUserID string
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u42", gotUserID)
}

func TestMiddlewareRejectsGarbageToken(t *testing.T) {
	cfg := models.AuthConfig{JWTSecret: testSecret, RequireAuth: true}
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerTokenQueryFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil)
	assert.Equal(t, "abc", BearerToken(req, true))
	assert.Equal(t, "", BearerToken(req, false))

	req.Header.Set("Authorization", "Bearer header-wins")
	assert.Equal(t, "header-wins", BearerToken(req, true))
}

func TestMiddlewareOptionalAuthPassesThrough(t *testing.T) {
	cfg := models.AuthConfig{JWTSecret: testSecret, RequireAuth: false}
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Nil(t, ClaimsFrom(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
