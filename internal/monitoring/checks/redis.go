package checks

import (
	"context"
	"time"

	"github.com/charlesng35/quizapi/internal/monitoring"
)

const defaultRedisTimeout = 2 * time.Second

// Pinger is the minimal surface needed to ping the distributed cache tier.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Redis returns a readiness check for the Redis cache tier. The cache falls back to its
// local tier when Redis is unreachable, so a failed ping degrades instead of failing.
func Redis(client Pinger, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.CheckResult {
		start := time.Now()
		if client == nil {
			return monitoring.CheckResult{Status: monitoring.StatusUp, Details: "redis disabled"}
		}

		checkCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultRedisTimeout))
		defer cancel()

		result := monitoring.ResultFromError(client.Ping(checkCtx), time.Since(start))
		if result.Status == monitoring.StatusDown {
			result.Status = monitoring.StatusDegraded
		}
		return result
	})
}
