package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap-server/internal/auth"
	"starmap-server/internal/shared/config"
)

var testSecret = strings.Repeat("k", auth.MinSecretLength)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := GetClaimsFromContext(r); claims != nil {
			w.Header().Set("X-Subject", claims.Subject)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func adminRequest(t *testing.T, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/catalog/load", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	RequireAdmin(testSecret, okHandler()).ServeHTTP(rec, req)
	return rec
}

func TestRequireAdmin(t *testing.T) {
	admin, err := auth.GenerateToken(testSecret, "ops", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)
	reader, err := auth.GenerateToken(testSecret, "viewer", "reader", time.Hour)
	require.NoError(t, err)

	rec := adminRequest(t, "Bearer "+admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ops", rec.Header().Get("X-Subject"))

	assert.Equal(t, http.StatusNoContent, adminRequest(t, "bearer "+admin).Code)
	assert.Equal(t, http.StatusUnauthorized, adminRequest(t, "").Code)
	assert.Equal(t, http.StatusUnauthorized, adminRequest(t, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, adminRequest(t, "Bearer not-a-token").Code)
	assert.Equal(t, http.StatusForbidden, adminRequest(t, "Bearer "+reader).Code)
}

func TestRequireAdminWithoutSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/catalog/load", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()

	RequireAdmin("", okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, BurstSize: 2})
	handler := rl.Middleware(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/crossmatch/stats", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:1000"))
	assert.Equal(t, 2, rl.clientCount())

	rl.evictIdle(time.Now().Add(time.Hour * 24 * 365))
	assert.Zero(t, rl.clientCount())
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(context.Background(), config.RateLimitConfig{Enabled: false, RequestsPerSecond: 0.001, BurstSize: 1})
	handler := rl.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "192.168.1.1", getClientIP(req, false))
	assert.Equal(t, "203.0.113.7", getClientIP(req, true))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", getClientIP(req, true))
}
