package cache

import (
	"context"
	"time"
)

// Distributed is a cache tier shared between process instances.
type Distributed interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key and registers it with every tag. A failed or cancelled Set
	// must not leave a partially written entry behind.
	Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByTag(ctx context.Context, tags ...string) error
}

// Counter maintains fixed-window counters, used for rate limiting.
type Counter interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
