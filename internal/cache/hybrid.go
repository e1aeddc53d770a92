package cache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/quizapi/pkg/logger"
	"github.com/charlesng35/quizapi/pkg/metrics"
)

const (
	defaultLocalTTL       = 5 * time.Minute
	defaultDistributedTTL = 30 * time.Minute

	suspectRetryTimeout = 5 * time.Second
)

// Options describe how a value is stored.
type Options struct {
	Tags           []string
	LocalTTL       time.Duration
	DistributedTTL time.Duration
	// LoadedTags, when set, is called after the loader ran and adds tags derived from the
	// loaded value. It is not consulted on a hit.
	LoadedTags func() []string
}

// HybridConfig configures a Hybrid cache.
type HybridConfig struct {
	Shards                int
	DefaultLocalTTL       time.Duration
	DefaultDistributedTTL time.Duration
	// Distributed is optional; without it the cache is process-local only.
	Distributed Distributed
	Codec       Codec
	Logger      *zap.Logger
	Clock       func() time.Time
}

// Facade is the cache surface consumed by services.
type Facade interface {
	GetOrCreateBytes(ctx context.Context, key string, load func(context.Context) ([]byte, error), opts Options) ([]byte, error)
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, opts Options) error
	Remove(ctx context.Context, key string) error
	RemoveByTag(ctx context.Context, tags ...string) error
	Codec() Codec
}

// Hybrid is a two-tier cache: a sharded in-process tier in front of an optional distributed
// tier. Distributed failures are logged and absorbed; the local tier keeps serving.
//
// A tag whose distributed invalidation failed is held as suspect until the delete is retried
// successfully or every remote entry written before the failure has expired. Reads touching
// a suspect tag skip the distributed tier.
type Hybrid struct {
	local          *memoryTier
	remote         Distributed
	codec          Codec
	log            *zap.Logger
	clock          func() time.Time
	localTTL       time.Duration
	distributedTTL time.Duration

	mu      sync.Mutex
	suspect map[string]time.Time
	// longestTTL is the longest distributed TTL written so far, in nanoseconds.
	longestTTL atomic.Int64
}

var _ Facade = (*Hybrid)(nil)

// NewHybrid constructs the cache facade.
func NewHybrid(cfg HybridConfig) *Hybrid {
	h := &Hybrid{
		local:          newMemoryTier(cfg.Shards, cfg.Clock),
		remote:         cfg.Distributed,
		codec:          cfg.Codec,
		log:            cfg.Logger,
		clock:          cfg.Clock,
		localTTL:       cfg.DefaultLocalTTL,
		distributedTTL: cfg.DefaultDistributedTTL,
		suspect:        make(map[string]time.Time),
	}
	if h.codec == nil {
		h.codec = SonicCodec()
	}
	if h.log == nil {
		h.log = logger.WithModule("cache")
	}
	if h.localTTL <= 0 {
		h.localTTL = defaultLocalTTL
	}
	if h.distributedTTL <= 0 {
		h.distributedTTL = defaultDistributedTTL
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	h.longestTTL.Store(int64(h.distributedTTL))
	return h
}

// Close releases the local tier.
func (h *Hybrid) Close() {
	h.local.close()
}

// Codec returns the codec used by the typed helpers.
func (h *Hybrid) Codec() Codec {
	return h.codec
}

// GetOrCreateBytes returns the cached value for key, invoking load on a miss in both tiers.
// The loaded value is stored with the supplied tags. Loader errors are returned and not cached.
func (h *Hybrid) GetOrCreateBytes(ctx context.Context, key string, load func(context.Context) ([]byte, error), opts Options) ([]byte, error) {
	if load == nil {
		return nil, errors.New("cache: loader is required")
	}
	ctx = ensuredContext(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tags := normaliseTags(opts.Tags)
	versions := h.local.snapshot(tags)

	if value, ok := h.lookup(ctx, key, tags, versions, opts); ok {
		return value, nil
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte("null")
	}
	if opts.LoadedTags != nil {
		tags, versions = h.widen(tags, versions, opts.LoadedTags())
	}

	if err := h.store(ctx, key, value, tags, versions, opts); err != nil {
		return nil, err
	}
	return value, nil
}

// GetBytes looks key up in the local tier and then the distributed tier.
func (h *Hybrid) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	ctx = ensuredContext(ctx)
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	value, ok := h.lookup(ctx, key, nil, nil, Options{})
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
	}
	return value, ok, nil
}

// SetBytes stores value in both tiers.
func (h *Hybrid) SetBytes(ctx context.Context, key string, value []byte, opts Options) error {
	ctx = ensuredContext(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	if value == nil {
		value = []byte("null")
	}

	tags := normaliseTags(opts.Tags)
	return h.store(ctx, key, value, tags, h.local.snapshot(tags), opts)
}

// Remove deletes key from both tiers.
func (h *Hybrid) Remove(ctx context.Context, key string) error {
	ctx = ensuredContext(ctx)
	h.local.remove(key)

	if h.remote == nil {
		return nil
	}
	if err := h.remote.Delete(ctx, key); err != nil {
		return h.absorb(ctx, "delete", err, zap.String("key", key))
	}
	return nil
}

// RemoveByTag deletes every entry carrying any of the tags from both tiers. Tags that match
// nothing are ignored.
func (h *Hybrid) RemoveByTag(ctx context.Context, tags ...string) error {
	ctx = ensuredContext(ctx)
	tags = normaliseTags(tags)
	if len(tags) == 0 {
		return nil
	}

	removed := h.local.removeByTag(tags...)
	metrics.CacheInvalidations.Add(float64(len(tags)))
	h.log.Debug("cache tags invalidated", zap.Strings("tags", tags), zap.Int("local_entries", removed))

	if h.remote == nil {
		return nil
	}
	pending := h.pendingSuspects()
	if err := h.remote.DeleteByTag(ctx, mergeTags(tags, pending)...); err != nil {
		h.markSuspect(tags)
		return h.absorb(ctx, "delete_by_tag", err, zap.Strings("tags", tags))
	}
	h.clearSuspects(pending)
	return nil
}

// PurgeExpired retries pending distributed invalidations, then reclaims expired and
// invalidated local entries.
func (h *Hybrid) PurgeExpired() int {
	h.retrySuspects()
	return h.local.purgeExpired()
}

// suspectTags returns the tags whose distributed invalidation is still outstanding.
func (h *Hybrid) suspectTags() []string {
	pending := h.pendingSuspects()
	tags := make([]string, 0, len(pending))
	for tag := range pending {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (h *Hybrid) retrySuspects() {
	pending := h.pendingSuspects()
	if h.remote == nil || len(pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), suspectRetryTimeout)
	defer cancel()

	tags := mergeTags(nil, pending)
	if err := h.remote.DeleteByTag(ctx, tags...); err != nil {
		_ = h.absorb(ctx, "delete_by_tag", err, zap.Strings("tags", tags))
		return
	}
	h.clearSuspects(pending)
	h.log.Info("distributed cache invalidation recovered", zap.Strings("tags", tags))
}

// markSuspect holds tags until every distributed entry that may predate the failed
// invalidation has expired.
func (h *Hybrid) markSuspect(tags []string) {
	until := h.clock().Add(time.Duration(h.longestTTL.Load()))
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, tag := range tags {
		if until.After(h.suspect[tag]) {
			h.suspect[tag] = until
		}
	}
}

// pendingSuspects returns the unexpired suspect tags with their deadlines.
func (h *Hybrid) pendingSuspects() map[string]time.Time {
	now := h.clock()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.suspect) == 0 {
		return nil
	}
	pending := make(map[string]time.Time, len(h.suspect))
	for tag, until := range h.suspect {
		if !now.Before(until) {
			delete(h.suspect, tag)
			continue
		}
		pending[tag] = until
	}
	return pending
}

// clearSuspects drops marks covered by a successful delete. A mark re-armed in the meantime
// carries a later deadline and stays.
func (h *Hybrid) clearSuspects(seen map[string]time.Time) {
	if len(seen) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for tag, until := range seen {
		if h.suspect[tag].Equal(until) {
			delete(h.suspect, tag)
		}
	}
}

// bypassRemote reports whether a read must not trust the distributed tier. An untagged read
// cannot tell which tags its entry carries, so any suspect tag disables the tier for it.
func (h *Hybrid) bypassRemote(tags []string) bool {
	pending := h.pendingSuspects()
	if len(pending) == 0 {
		return false
	}
	if tags == nil {
		return true
	}
	for _, tag := range tags {
		if _, ok := pending[tag]; ok {
			return true
		}
	}
	return false
}

// widen adds tags derived from a loaded value. Tags already requested keep the versions
// captured before the load; new ones are pinned now.
func (h *Hybrid) widen(tags []string, versions []uint64, extra []string) ([]string, []uint64) {
	merged := normaliseTags(append(append([]string(nil), tags...), extra...))
	if len(merged) == len(tags) {
		return tags, versions
	}
	known := make(map[string]uint64, len(tags))
	for i, tag := range tags {
		known[tag] = versions[i]
	}
	pinned := h.local.snapshot(merged)
	for i, tag := range merged {
		if version, ok := known[tag]; ok {
			pinned[i] = version
		}
	}
	return merged, pinned
}

// lookup consults the local tier, then the distributed tier. A distributed hit refills the
// local tier under the versions captured before the remote read.
func (h *Hybrid) lookup(ctx context.Context, key string, tags []string, versions []uint64, opts Options) ([]byte, bool) {
	if value, ok := h.local.get(key); ok {
		metrics.CacheLookups.WithLabelValues("local", "hit").Inc()
		return value, true
	}
	metrics.CacheLookups.WithLabelValues("local", "miss").Inc()

	if h.remote == nil {
		return nil, false
	}
	if h.bypassRemote(tags) {
		metrics.CacheLookups.WithLabelValues("distributed", "bypass").Inc()
		return nil, false
	}

	value, ok, err := h.remote.Get(ctx, key)
	if err != nil {
		_ = h.absorb(ctx, "get", err, zap.String("key", key))
		return nil, false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("distributed", "miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("distributed", "hit").Inc()

	if tags != nil {
		h.setLocal(key, value, tags, versions, opts)
	}
	return value, true
}

// store writes the distributed tier first so a cancelled write never reaches the local tier.
func (h *Hybrid) store(ctx context.Context, key string, value []byte, tags []string, versions []uint64, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if h.remote != nil {
		ttl := h.ttl(opts.DistributedTTL, h.distributedTTL)
		h.recordTTL(ttl)
		err := h.remote.Set(ctx, key, value, tags, ttl)
		if err != nil {
			if absorbed := h.absorb(ctx, "set", err, zap.String("key", key)); absorbed != nil {
				return absorbed
			}
		} else if !h.local.current(tags, versions) {
			// A tag was invalidated while the value was being produced.
			if err := h.remote.Delete(ctx, key); err != nil {
				_ = h.absorb(ctx, "delete", err, zap.String("key", key))
			}
		}
	}

	h.setLocal(key, value, tags, versions, opts)
	return nil
}

// setLocal writes the local tier. A write the tier drops only costs a later miss.
func (h *Hybrid) setLocal(key string, value []byte, tags []string, versions []uint64, opts Options) {
	if err := h.local.setVersioned(key, value, tags, versions, h.ttl(opts.LocalTTL, h.localTTL)); err != nil {
		metrics.CacheTierErrors.WithLabelValues("local_set").Inc()
		h.log.Warn("local cache tier dropped a write", zap.String("key", key), zap.Error(err))
	}
}

func (h *Hybrid) recordTTL(ttl time.Duration) {
	for {
		current := h.longestTTL.Load()
		if int64(ttl) <= current || h.longestTTL.CompareAndSwap(current, int64(ttl)) {
			return
		}
	}
}

// absorb logs a distributed tier failure. Cancellation of the caller's context is the only
// error handed back.
func (h *Hybrid) absorb(ctx context.Context, operation string, err error, fields ...zap.Field) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	metrics.CacheTierErrors.WithLabelValues(operation).Inc()
	fields = append(fields, zap.String("operation", operation), zap.Error(err))
	h.log.Warn("distributed cache unavailable, using local tier", fields...)
	return nil
}

func (h *Hybrid) ttl(requested, fallback time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	return fallback
}

func normaliseTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// mergeTags returns tags together with the keys of extra, normalised.
func mergeTags(tags []string, extra map[string]time.Time) []string {
	out := append([]string(nil), tags...)
	for tag := range extra {
		out = append(out, tag)
	}
	return normaliseTags(out)
}

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
