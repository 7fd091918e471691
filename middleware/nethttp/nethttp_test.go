package nethttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassus213/ratelimit-core/ratelimiter"
	"github.com/jassus213/ratelimit-core/store"
)

func newTestEngine(t *testing.T, maxRequests int64) *ratelimiter.Engine {
	t.Helper()
	cfg, err := ratelimiter.NewConfig(time.Minute, maxRequests, ratelimiter.FixedWindow)
	require.NoError(t, err)

	s := store.NewMemory(context.Background(), 0)
	engine, err := ratelimiter.NewEngine(cfg, s, ratelimiter.NewMockClock(0), nil)
	require.NoError(t, err)
	return engine
}

func TestMiddlewareForwardsAllowedRequests(t *testing.T) {
	engine := newTestEngine(t, 2)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	handler := Middleware(engine)(next)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	engine := newTestEngine(t, 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(engine)(next)

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, "application/json", rec2.Header().Get("Content-Type"))
	assert.Contains(t, rec2.Body.String(), "rate limit exceeded")
	assert.NotEmpty(t, rec2.Header().Get("Retry-After"))
}

func TestMiddlewareFallsBackToUnknownKeyOnKeyFuncError(t *testing.T) {
	cfg, err := ratelimiter.NewConfig(time.Minute, 2, ratelimiter.FixedWindow, ratelimiter.WithKeyFunc(func(r *http.Request) (string, error) {
		return "", errors.New("boom")
	}))
	require.NoError(t, err)

	s := store.NewMemory(context.Background(), 0)
	engine, err := ratelimiter.NewEngine(cfg, s, ratelimiter.NewMockClock(0), nil)
	require.NoError(t, err)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(engine)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
