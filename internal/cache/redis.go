package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisTimeout = 5 * time.Second
	defaultRedisPrefix  = "quizapi"
)

// RedisConfig captures connection parameters for the Redis tier.
type RedisConfig struct {
	Address   string
	Username  string
	Password  string
	DB        int
	TLS       bool
	Timeout   time.Duration
	PoolSize  int
	KeyPrefix string
}

// deleteByTagScript drops every entry indexed under the given tag sets and the sets themselves
// in one atomic step, so a concurrent Set either lands before (and is dropped) or after.
var deleteByTagScript = redis.NewScript(`
local removed = 0
for _, tag in ipairs(KEYS) do
	local members = redis.call('SMEMBERS', tag)
	for _, member in ipairs(members) do
		removed = removed + redis.call('DEL', ARGV[1] .. member)
	end
	redis.call('DEL', tag)
end
return removed
`)

var incrementScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {count, redis.call('PTTL', KEYS[1])}
`)

// RedisStore is the Redis-backed distributed tier. Entries live under <prefix>:entry:<key>
// and tag indexes are sets under <prefix>:tag:<tag>.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	ownsClient bool
}

var (
	_ Distributed = (*RedisStore)(nil)
	_ Counter     = (*RedisStore)(nil)
)

// NewRedisStore connects to Redis and verifies the connection so misconfiguration surfaces at start-up.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		PoolSize:     cfg.PoolSize,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ensuredContext(ctx)).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	store := NewRedisStoreFromClient(client, cfg.KeyPrefix)
	store.ownsClient = true
	return store, nil
}

// NewRedisStoreFromClient wraps an existing client. The caller keeps ownership of it.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Get returns the raw value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ensuredContext(ctx), s.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set writes the value and its tag memberships in a single MULTI/EXEC transaction.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error {
	ctx = ensuredContext(ctx)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.entryKey(key), value, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, s.tagKey(tag), key)
		}
		return nil
	})
	return err
}

// Delete removes the given keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.entryKey(key)
	}
	return s.client.Del(ensuredContext(ctx), full...).Err()
}

// DeleteByTag removes every entry registered under any of the tags.
func (s *RedisStore) DeleteByTag(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	tagKeys := make([]string, len(tags))
	for i, tag := range tags {
		tagKeys[i] = s.tagKey(tag)
	}
	return deleteByTagScript.Run(ensuredContext(ctx), s.client, tagKeys, s.prefix+":entry:").Err()
}

// IncrementWithTTL bumps a fixed-window counter. The window starts with the first increment.
func (s *RedisStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	values, err := incrementScript.Run(ensuredContext(ctx), s.client, []string{s.prefix + ":counter:" + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) != 2 {
		return 0, 0, errors.New("redis: unexpected increment reply")
	}
	ttl := time.Duration(values[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return values[0], ttl, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ensuredContext(ctx)).Err()
}

// Close releases the client when the store created it.
func (s *RedisStore) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) entryKey(key string) string {
	return s.prefix + ":entry:" + key
}

func (s *RedisStore) tagKey(tag string) string {
	return s.prefix + ":tag:" + tag
}
