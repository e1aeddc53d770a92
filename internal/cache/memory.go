package cache

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	defaultShards = 32

	// Sizing of the ristretto store backing a tier. Cost is measured in bytes of key and value.
	storeMaxCost     = 64 << 20
	storeNumCounters = 1 << 17
	storeBufferItems = 64

	// Expiry is decided by the injected clock. The ristretto TTL only reclaims memory after
	// that, so it trails the logical deadline.
	storeReclaimGrace = time.Minute
)

var errLocalWriteDropped = errors.New("cache: local tier dropped the write")

// memoryTier is the process-local cache tier. Values live in a ristretto store. Alongside it
// the tier keeps a sharded index of live keys and a tag index: every tag carries a version
// counter, an entry remembers the versions of its tags at write time and is treated as absent
// once any of them moved on.
type memoryTier struct {
	store     *ristretto.Cache[string, *memoryEntry]
	shards    []*keyShard
	tagShards []*tagShard
	clock     func() time.Time
}

// keyShard serialises writes per key and lets sweeps enumerate keys, which ristretto cannot.
type keyShard struct {
	mu   sync.Mutex
	keys map[string]*entryMeta
}

type memoryEntry struct {
	value []byte
	meta  *entryMeta
}

type entryMeta struct {
	expiresAt time.Time
	tags      []string
	versions  []uint64
}

type tagShard struct {
	mu       sync.RWMutex
	versions map[string]uint64
	keys     map[string]map[string]struct{}
}

func newMemoryTier(shards int, clock func() time.Time) *memoryTier {
	if shards <= 0 {
		shards = defaultShards
	}
	if clock == nil {
		clock = time.Now
	}

	store, err := ristretto.NewCache(&ristretto.Config[string, *memoryEntry]{
		NumCounters:        storeNumCounters,
		MaxCost:            storeMaxCost,
		BufferItems:        storeBufferItems,
		IgnoreInternalCost: true,
	})
	if err != nil {
		// Only reachable with an invalid static configuration.
		panic(fmt.Sprintf("cache: ristretto store: %v", err))
	}

	tier := &memoryTier{
		store:     store,
		shards:    make([]*keyShard, shards),
		tagShards: make([]*tagShard, shards),
		clock:     clock,
	}
	for i := 0; i < shards; i++ {
		tier.shards[i] = &keyShard{keys: make(map[string]*entryMeta)}
		tier.tagShards[i] = &tagShard{
			versions: make(map[string]uint64),
			keys:     make(map[string]map[string]struct{}),
		}
	}
	return tier
}

func shardIndex(value string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	return int(h.Sum32() % uint32(n))
}

func (m *memoryTier) shardFor(key string) *keyShard {
	return m.shards[shardIndex(key, len(m.shards))]
}

func (m *memoryTier) tagShardFor(tag string) *tagShard {
	return m.tagShards[shardIndex(tag, len(m.tagShards))]
}

// snapshot captures the current versions of tags. Passing the result to setVersioned makes
// the write invisible if any tag is invalidated in between.
func (m *memoryTier) snapshot(tags []string) []uint64 {
	versions := make([]uint64, len(tags))
	for i, tag := range tags {
		shard := m.tagShardFor(tag)
		shard.mu.RLock()
		versions[i] = shard.versions[tag]
		shard.mu.RUnlock()
	}
	return versions
}

// current reports whether the recorded versions still match the live ones.
func (m *memoryTier) current(tags []string, versions []uint64) bool {
	for i, tag := range tags {
		shard := m.tagShardFor(tag)
		shard.mu.RLock()
		live := shard.versions[tag]
		shard.mu.RUnlock()
		if live != versions[i] {
			return false
		}
	}
	return true
}

func (m *memoryTier) get(key string) ([]byte, bool) {
	entry, ok := m.store.Get(key)
	if !ok || entry == nil {
		return nil, false
	}

	if entry.meta.expired(m.clock()) || !m.current(entry.meta.tags, entry.meta.versions) {
		m.deleteIf(key, entry.meta)
		return nil, false
	}
	return entry.value, true
}

func (m *memoryTier) set(key string, value []byte, tags []string, ttl time.Duration) error {
	return m.setVersioned(key, value, tags, m.snapshot(tags), ttl)
}

// setVersioned stores value and waits until the store has applied the write. A write the
// store refused, either from a full buffer or at admission, returns errLocalWriteDropped.
func (m *memoryTier) setVersioned(key string, value []byte, tags []string, versions []uint64, ttl time.Duration) error {
	meta := &entryMeta{tags: tags, versions: versions}
	var storeTTL time.Duration
	if ttl > 0 {
		meta.expiresAt = m.clock().Add(ttl)
		storeTTL = ttl + storeReclaimGrace
	}

	for _, tag := range tags {
		shard := m.tagShardFor(tag)
		shard.mu.Lock()
		keys, ok := shard.keys[tag]
		if !ok {
			keys = make(map[string]struct{})
			shard.keys[tag] = keys
		}
		keys[key] = struct{}{}
		shard.mu.Unlock()
	}

	shard := m.shardFor(key)
	shard.mu.Lock()
	accepted := m.store.SetWithTTL(key, &memoryEntry{value: value, meta: meta}, entryCost(key, value), storeTTL)
	if accepted {
		shard.keys[key] = meta
	}
	shard.mu.Unlock()
	if !accepted {
		return errLocalWriteDropped
	}

	m.store.Wait()
	if _, ok := m.store.Get(key); !ok {
		// Still indexed means nobody removed it on purpose: the store rejected it.
		if m.forget(key, meta) {
			return errLocalWriteDropped
		}
	}
	return nil
}

func (m *memoryTier) remove(key string) {
	shard := m.shardFor(key)
	shard.mu.Lock()
	meta, ok := shard.keys[key]
	delete(shard.keys, key)
	m.store.Del(key)
	shard.mu.Unlock()

	if ok {
		m.unindex(key, meta.tags)
	}
}

// removeByTag bumps the tag versions first, so concurrent readers stop trusting tagged
// entries before the indexed keys are physically dropped.
func (m *memoryTier) removeByTag(tags ...string) int {
	var keys []string
	for _, tag := range tags {
		shard := m.tagShardFor(tag)
		shard.mu.Lock()
		shard.versions[tag]++
		for key := range shard.keys[tag] {
			keys = append(keys, key)
		}
		delete(shard.keys, tag)
		shard.mu.Unlock()
	}

	for _, key := range keys {
		shard := m.shardFor(key)
		shard.mu.Lock()
		delete(shard.keys, key)
		m.store.Del(key)
		shard.mu.Unlock()
	}
	return len(keys)
}

// purgeExpired drops expired, invalidated and store-evicted entries and returns how many
// were removed.
func (m *memoryTier) purgeExpired() int {
	now := m.clock()
	removed := 0
	for _, shard := range m.shards {
		var stale map[string]*entryMeta

		shard.mu.Lock()
		for key, meta := range shard.keys {
			evicted := false
			if !meta.expired(now) && m.current(meta.tags, meta.versions) {
				_, present := m.store.Get(key)
				evicted = !present
				if !evicted {
					continue
				}
			}
			if stale == nil {
				stale = make(map[string]*entryMeta)
			}
			stale[key] = meta
		}
		for key := range stale {
			delete(shard.keys, key)
			m.store.Del(key)
		}
		shard.mu.Unlock()

		for key, meta := range stale {
			m.unindex(key, meta.tags)
			removed++
		}
	}
	return removed
}

func (m *memoryTier) len() int {
	total := 0
	for _, shard := range m.shards {
		shard.mu.Lock()
		total += len(shard.keys)
		shard.mu.Unlock()
	}
	return total
}

func (m *memoryTier) close() {
	m.store.Close()
}

// deleteIf removes key only while it still belongs to the entry described by meta, leaving
// newer writes alone.
func (m *memoryTier) deleteIf(key string, meta *entryMeta) bool {
	shard := m.shardFor(key)
	shard.mu.Lock()
	owned := shard.keys[key] == meta
	if owned {
		delete(shard.keys, key)
		m.store.Del(key)
	}
	shard.mu.Unlock()

	if owned {
		m.unindex(key, meta.tags)
	}
	return owned
}

// forget drops the index entry of a write the store never kept.
func (m *memoryTier) forget(key string, meta *entryMeta) bool {
	shard := m.shardFor(key)
	shard.mu.Lock()
	owned := shard.keys[key] == meta
	if owned {
		delete(shard.keys, key)
	}
	shard.mu.Unlock()

	if owned {
		m.unindex(key, meta.tags)
	}
	return owned
}

func (m *memoryTier) unindex(key string, tags []string) {
	for _, tag := range tags {
		shard := m.tagShardFor(tag)
		shard.mu.Lock()
		if keys, ok := shard.keys[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(shard.keys, tag)
			}
		}
		shard.mu.Unlock()
	}
}

func entryCost(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

func (e *entryMeta) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
