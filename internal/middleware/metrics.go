package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quizapi/pkg/metrics"
)

// Metrics records request latency per route and the outcome of output cache lookups.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		route := c.FullPath()
		if route == "" {
			// Unmatched routes share one label to keep cardinality bounded.
			route = "unmatched"
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.APILatency.WithLabelValues(c.Request.Method, route, status).Observe(duration)

		if cacheStatus := c.Writer.Header().Get(cacheStatusHeader); cacheStatus != "" {
			metrics.CacheLookups.WithLabelValues("output", strings.ToLower(cacheStatus)).Inc()
		}
	}
}
