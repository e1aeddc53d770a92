package cache

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

const defaultOutputTTL = time.Minute

// CachedResponse is a rendered response held by the output cache.
type CachedResponse struct {
	Status      int         `json:"status"`
	ContentType string      `json:"content_type"`
	Header      http.Header `json:"header,omitempty"`
	Body        []byte      `json:"body"`
}

// OutputCacheConfig configures an OutputCache.
type OutputCacheConfig struct {
	Shards     int
	DefaultTTL time.Duration
	Clock      func() time.Time
}

// OutputCache holds whole HTTP responses tagged by resource family (e.g. "quizzes").
type OutputCache struct {
	tier *memoryTier
	ttl  time.Duration
}

// NewOutputCache constructs an output cache with its own local tier.
func NewOutputCache(cfg OutputCacheConfig) *OutputCache {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = defaultOutputTTL
	}
	return &OutputCache{
		tier: newMemoryTier(cfg.Shards, cfg.Clock),
		ttl:  ttl,
	}
}

// Get returns the stored response for key.
func (o *OutputCache) Get(_ context.Context, key string) (*CachedResponse, bool) {
	raw, ok := o.tier.get(key)
	if !ok {
		return nil, false
	}
	var resp CachedResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		o.tier.remove(key)
		return nil, false
	}
	return &resp, true
}

// OutputTicket pins the tag versions observed before a response was rendered.
type OutputTicket struct {
	tags     []string
	versions []uint64
}

// Begin is called before rendering. A response stored with the ticket is discarded on read if
// any of its tags was evicted in between.
func (o *OutputCache) Begin(tags ...string) OutputTicket {
	tags = normaliseTags(tags)
	return OutputTicket{tags: tags, versions: o.tier.snapshot(tags)}
}

// Store records a response under key. A non-positive ttl uses the default.
func (o *OutputCache) Store(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration, ticket OutputTicket) error {
	if err := ensuredContext(ctx).Err(); err != nil {
		return err
	}
	raw, err := sonic.Marshal(resp)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = o.ttl
	}
	return o.tier.setVersioned(key, raw, ticket.tags, ticket.versions, ttl)
}

// EvictByTag drops every response stored under tag.
func (o *OutputCache) EvictByTag(_ context.Context, tag string) error {
	o.tier.removeByTag(tag)
	return nil
}

// PurgeExpired reclaims expired responses.
func (o *OutputCache) PurgeExpired() int {
	return o.tier.purgeExpired()
}

// Close releases the response store.
func (o *OutputCache) Close() {
	o.tier.close()
}
