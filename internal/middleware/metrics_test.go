package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quizapi/pkg/metrics"
)

func TestMetricsCountsOutputCacheStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/quizzes", func(c *gin.Context) {
		c.Header(cacheStatusHeader, c.Query("cache"))
		c.Status(http.StatusOK)
	})
	r.GET("/api/auth/me", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	hits := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("output", "hit"))
	misses := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("output", "miss"))

	for _, target := range []string{"/api/quizzes?cache=MISS", "/api/quizzes?cache=HIT", "/api/quizzes?cache=HIT", "/api/auth/me"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	require.Equal(t, hits+2, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("output", "hit")))
	require.Equal(t, misses+1, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("output", "miss")))
}

func TestMetricsCollapsesUnmatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())

	before := testutil.CollectAndCount(metrics.APILatency)
	for _, target := range []string{"/api/nope/1", "/api/nope/2", "/api/nope/3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}
	after := testutil.CollectAndCount(metrics.APILatency)
	require.LessOrEqual(t, after-before, 1)
}
