package maintenance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/quizapi/pkg/logger"
)

const (
	defaultCacheSpec = "@every 5m"
	defaultTokenSpec = "@daily"

	// JobCachePurge and JobTokenCleanup name the scheduled jobs in status reports.
	JobCachePurge   = "cache_purge"
	JobTokenCleanup = "token_cleanup"
)

// MemoryPurger reclaims expired entries of an in-process cache tier.
type MemoryPurger interface {
	PurgeExpired() int
}

// StorePurger removes expired rows of a persistent cache store.
type StorePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// TokenCleaner removes refresh tokens past their expiry.
type TokenCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Stats reports how much a cleanup pass removed.
type Stats struct {
	LocalEntries  int
	OutputEntries int
	StoreEntries  int64
	RefreshTokens int64
}

// JobStatus summarises the scheduled runs of one maintenance job.
type JobStatus struct {
	Job                 string    `json:"job"`
	TotalRuns           int       `json:"total_runs"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastRunAt           time.Time `json:"last_run_at"`
	LastError           string    `json:"last_error,omitempty"`
}

// Cleaner coordinates background maintenance: it purges expired cache entries and removes
// expired refresh tokens.
type Cleaner struct {
	local  MemoryPurger
	output MemoryPurger
	store  StorePurger
	tokens TokenCleaner
	cron   *cron.Cron
	log    *zap.Logger
	now    func() time.Time

	cacheSchedule string
	tokenSchedule string

	mu   sync.Mutex
	jobs map[string]*JobStatus
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithLocalCache purges the hybrid cache's local tier.
func WithLocalCache(p MemoryPurger) Option {
	return func(cleaner *Cleaner) { cleaner.local = p }
}

// WithOutputCache purges the response cache.
func WithOutputCache(p MemoryPurger) Option {
	return func(cleaner *Cleaner) { cleaner.output = p }
}

// WithCacheStore purges a database backed distributed tier.
func WithCacheStore(p StorePurger) Option {
	return func(cleaner *Cleaner) { cleaner.store = p }
}

// WithTokens removes expired refresh tokens.
func WithTokens(t TokenCleaner) Option {
	return func(cleaner *Cleaner) { cleaner.tokens = t }
}

// WithClock overrides the time source used for job status timestamps.
func WithClock(clock func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if clock != nil {
			cleaner.now = clock
		}
	}
}

// WithCacheSchedule overrides the cron expression for cache purging.
func WithCacheSchedule(schedule string) Option {
	return func(cleaner *Cleaner) {
		if schedule != "" {
			cleaner.cacheSchedule = schedule
		}
	}
}

// WithTokenSchedule overrides the cron expression for token cleanup.
func WithTokenSchedule(schedule string) Option {
	return func(cleaner *Cleaner) {
		if schedule != "" {
			cleaner.tokenSchedule = schedule
		}
	}
}

// NewCleaner constructs a Cleaner. Jobs whose dependency was not supplied are skipped.
func NewCleaner(opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		cacheSchedule: defaultCacheSpec,
		tokenSchedule: defaultTokenSpec,
		log:           logger.WithModule("maintenance"),
		now:           time.Now,
		jobs:          make(map[string]*JobStatus),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	hasCache := c.local != nil || c.output != nil || c.store != nil
	if !hasCache && c.tokens == nil {
		return nil
	}

	if hasCache {
		c.register(JobCachePurge)
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			stats, err := c.purgeCaches(context.Background())
			c.record(JobCachePurge, err)
			if err != nil {
				c.log.Warn("cache purge failed", zap.Error(err))
				return
			}
			c.log.Debug("cache purge finished",
				zap.Int("local", stats.LocalEntries),
				zap.Int("output", stats.OutputEntries),
				zap.Int64("store", stats.StoreEntries),
			)
		}); err != nil {
			return err
		}
	}

	if c.tokens != nil {
		c.register(JobTokenCleanup)
		if _, err := c.cron.AddFunc(c.tokenSchedule, func() {
			removed, err := c.tokens.CleanupExpired(context.Background())
			c.record(JobTokenCleanup, err)
			if err != nil {
				c.log.Warn("refresh token cleanup failed", zap.Error(err))
				return
			}
			c.log.Info("refresh token cleanup finished", zap.Int64("removed", removed))
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) (Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	stats, errs := c.purgeCaches(ctx)

	if c.tokens != nil {
		removed, err := c.tokens.CleanupExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		stats.RefreshTokens = removed
	}

	return stats, errs
}

func (c *Cleaner) purgeCaches(ctx context.Context) (Stats, error) {
	var (
		stats Stats
		errs  error
	)

	if c.local != nil {
		stats.LocalEntries = c.local.PurgeExpired()
	}
	if c.output != nil {
		stats.OutputEntries = c.output.PurgeExpired()
	}
	if c.store != nil {
		removed, err := c.store.PurgeExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		stats.StoreEntries = removed
	}

	return stats, errs
}

// Jobs returns a snapshot of the registered jobs ordered by name.
func (c *Cleaner) Jobs() []JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]JobStatus, 0, len(c.jobs))
	for _, job := range c.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

func (c *Cleaner) register(job string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.jobs[job]; !ok {
		c.jobs[job] = &JobStatus{Job: job}
	}
}

func (c *Cleaner) record(job string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status, ok := c.jobs[job]
	if !ok {
		status = &JobStatus{Job: job}
		c.jobs[job] = status
	}
	status.TotalRuns++
	status.LastRunAt = c.now().UTC()
	if err != nil {
		status.ConsecutiveFailures++
		status.LastError = err.Error()
		return
	}
	status.ConsecutiveFailures = 0
	status.LastError = ""
}
