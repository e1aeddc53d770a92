package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quizapi/internal/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type brokenRateStore struct{}

func (brokenRateStore) Increment(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("store down")
}

func newRateLimitedRouter(store RateStore, limit int, window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(store, limit, window))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/other", func(c *gin.Context) { c.String(http.StatusOK, "other") })
	return r
}

func hit(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := newRateLimitedRouter(NewMemoryRateStore(clock.Now), 2, time.Minute)

	// First two requests should pass
	for i := 0; i < 2; i++ {
		w := hit(r, "/ping")
		require.Equal(t, http.StatusOK, w.Code)
	}

	// Third request within window should be rate-limited
	w := hit(r, "/ping")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	require.NotEmpty(t, w.Header().Get("Retry-After"))
	require.Contains(t, w.Body.String(), "RATE_LIMITED")

	// Routes are counted separately
	require.Equal(t, http.StatusOK, hit(r, "/other").Code)

	clock.Advance(time.Minute)

	// After window resets, should pass again
	w = hit(r, "/ping")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitSharedCounterAcrossInstances(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewCounterRateStore(cache.NewRedisStoreFromClient(client, "test"))
	first := newRateLimitedRouter(store, 2, time.Minute)
	second := newRateLimitedRouter(store, 2, time.Minute)

	require.Equal(t, http.StatusOK, hit(first, "/ping").Code)
	require.Equal(t, http.StatusOK, hit(second, "/ping").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(first, "/ping").Code)

	server.FastForward(time.Minute)
	require.Equal(t, http.StatusOK, hit(second, "/ping").Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := newRateLimitedRouter(brokenRateStore{}, 1, time.Minute)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(r, "/ping").Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	r := newRateLimitedRouter(nil, 1, time.Minute)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(r, "/ping").Code)
	}
	require.Nil(t, NewCounterRateStore(nil))
}
