package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quizapi/internal/cache"
)

func newOutputCachedRouter(store *cache.OutputCache, calls *int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/quizzes", OutputCache(store, time.Minute, "quizzes"), func(c *gin.Context) {
		n := atomic.AddInt64(calls, 1)
		c.JSON(http.StatusOK, gin.H{"render": n})
	})
	r.GET("/missing", OutputCache(store, time.Minute, "quizzes"), func(c *gin.Context) {
		atomic.AddInt64(calls, 1)
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})
	return r
}

func get(r *gin.Engine, target string, header ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	r.ServeHTTP(w, req)
	return w
}

func TestOutputCacheServesRepeatedReads(t *testing.T) {
	store := cache.NewOutputCache(cache.OutputCacheConfig{})
	var calls int64
	r := newOutputCachedRouter(store, &calls)

	first := get(r, "/quizzes")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := get(r, "/quizzes")
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "HIT", second.Header().Get("X-Cache"))
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Contains(t, second.Header().Get("Content-Type"), "application/json")
	require.Equal(t, int64(1), atomic.LoadInt64(&calls))

	// Query strings produce distinct entries
	require.Equal(t, "MISS", get(r, "/quizzes?include=questions").Header().Get("X-Cache"))
	require.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestOutputCacheEvictByTag(t *testing.T) {
	store := cache.NewOutputCache(cache.OutputCacheConfig{})
	var calls int64
	r := newOutputCachedRouter(store, &calls)

	get(r, "/quizzes")
	require.NoError(t, store.EvictByTag(context.Background(), "quizzes"))

	w := get(r, "/quizzes")
	require.Equal(t, "MISS", w.Header().Get("X-Cache"))
	require.Contains(t, w.Body.String(), `"render":2`)
}

func TestOutputCacheSkipsErrorsAndAuthenticatedReads(t *testing.T) {
	store := cache.NewOutputCache(cache.OutputCacheConfig{})
	var calls int64
	r := newOutputCachedRouter(store, &calls)

	require.Equal(t, http.StatusNotFound, get(r, "/missing").Code)
	require.Equal(t, http.StatusNotFound, get(r, "/missing").Code)
	require.Equal(t, int64(2), atomic.LoadInt64(&calls))

	get(r, "/quizzes", "Authorization", "Bearer token")
	w := get(r, "/quizzes", "Authorization", "Bearer token")
	require.Empty(t, w.Header().Get("X-Cache"))
	require.Equal(t, int64(4), atomic.LoadInt64(&calls))

	// Anonymous readers never see a response rendered for an authenticated one.
	require.Equal(t, "MISS", get(r, "/quizzes").Header().Get("X-Cache"))
}
