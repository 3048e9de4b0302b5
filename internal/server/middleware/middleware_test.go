package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoflow/insight-engine/internal/auth"
	"github.com/cocoflow/insight-engine/internal/metrics"
	"github.com/cocoflow/insight-engine/internal/server/middleware"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

func identityEcho(t *testing.T) (http.Handler, *int64, *string) {
	t.Helper()

	var gotUserID int64
	var gotRole string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := middleware.UserIDFromContext(r.Context())
		require.True(t, ok)
		role, ok := middleware.RoleFromContext(r.Context())
		require.True(t, ok)
		gotUserID = uid
		gotRole = role
		w.WriteHeader(http.StatusOK)
	})
	return h, &gotUserID, &gotRole
}

func TestAuthValidToken(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testSecret, 999, "manager", time.Minute)
	require.NoError(t, err)

	inner, gotUserID, gotRole := identityEcho(t)
	handler := middleware.Auth(testSecret)(inner)

	req := httptest.NewRequest(http.MethodGet, "/insights", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(999), *gotUserID)
	assert.Equal(t, "manager", *gotRole)
}

func TestAuthMissingToken(t *testing.T) {
	t.Parallel()

	handler := middleware.Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/insights", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsRefreshToken(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueRefreshToken(testSecret, 999, "manager", time.Minute)
	require.NoError(t, err)

	handler := middleware.Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/insights", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken("another-secret-also-32-characters!!", 999, "manager", time.Minute)
	require.NoError(t, err)

	handler := middleware.Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/insights", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByIP(t.Context(), 1, 2)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1234"))

	// Different IP has its own bucket.
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1234"))
}

func TestLatencyRecordsSample(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector()
	handler := middleware.Latency(collector)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/insights", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	stats := collector.LatencyStats("/api/v1/insights")
	require.NotNil(t, stats)
	assert.Equal(t, int64(1), stats.Count)
}
