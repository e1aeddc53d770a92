package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login/registration attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizapi_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// TokenRefreshes counts refresh-token exchanges by outcome (success or the rejection reason).
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizapi_token_refreshes_total",
			Help: "Total number of refresh token exchanges",
		},
		[]string{"result"},
	)

	// CacheLookups counts cache reads per tier (local|distributed|output) and result (hit|miss).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizapi_cache_lookups_total",
			Help: "Cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	// CacheTierErrors counts distributed tier failures that were absorbed by the local fallback.
	CacheTierErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizapi_cache_tier_errors_total",
			Help: "Distributed cache errors recovered by falling back to the local tier",
		},
		[]string{"operation"},
	)

	// CacheInvalidations counts tags invalidated by write paths.
	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizapi_cache_tag_invalidations_total",
			Help: "Number of cache tags invalidated",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizapi_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
