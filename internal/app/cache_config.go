package app

import (
	"strings"

	"github.com/charlesng35/quizapi/internal/cache"
)

// Distributed tier drivers.
const (
	DistributedNone     = "none"
	DistributedRedis    = "redis"
	DistributedDatabase = "database"
)

// DistributedDriver returns the normalised distributed tier driver.
func (c CacheConfig) DistributedDriver() string {
	driver := strings.ToLower(strings.TrimSpace(c.Distributed.Driver))
	if driver == "" {
		return DistributedNone
	}
	return driver
}

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:   strings.TrimSpace(c.Redis.Address),
		Username:  strings.TrimSpace(c.Redis.Username),
		Password:  c.Redis.Password,
		DB:        c.Redis.DB,
		TLS:       c.Redis.TLS,
		Timeout:   c.Redis.Timeout,
		PoolSize:  c.Redis.PoolSize,
		KeyPrefix: strings.TrimSpace(c.Redis.KeyPrefix),
	}
}

// HybridConfig converts the tier settings. The distributed store is attached by the caller.
func (c CacheConfig) HybridConfig(distributed cache.Distributed) cache.HybridConfig {
	return cache.HybridConfig{
		Shards:                c.Local.Shards,
		DefaultLocalTTL:       c.Local.TTL,
		DefaultDistributedTTL: c.Distributed.TTL,
		Distributed:           distributed,
	}
}

// OutputCacheConfig converts the response cache settings.
func (c CacheConfig) OutputCacheConfig() cache.OutputCacheConfig {
	return cache.OutputCacheConfig{
		Shards:     c.Local.Shards,
		DefaultTTL: c.Output.TTL,
	}
}
