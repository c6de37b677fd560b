// Package cache keeps rendered availability reports in memory with a TTL,
// optionally backed by persistent report storage.
package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/models"
	"github.com/ternarybob/stockscope/internal/services/metrics"
	"golang.org/x/sync/singleflight"
)

// Options configures a ReportCache.
type Options struct {
	// TTL is how long an entry stays live after it was written. A non-positive
	// TTL makes every lookup a miss.
	TTL time.Duration

	// MaxItems bounds the number of in-memory entries. Zero means unbounded.
	MaxItems int

	// Storage is an optional second level. Writes go through to it and
	// memory misses read through from it.
	Storage interfaces.ReportStorage

	// Metrics receives hit, miss and eviction counts. Nil records nothing.
	Metrics *metrics.Recorder

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Stats is a point-in-time snapshot of the cache. The same counts are
// exported through Options.Metrics.
type Stats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Evictions int64     `json:"evictions"`
	Items     int       `json:"items"`
	LiveItems int       `json:"live_items"`
	LastPrune time.Time `json:"last_prune"`
}

// ComputeFunc builds the reports for a key on a cache miss.
type ComputeFunc func(ctx context.Context) (models.Reports, error)

// ReportCache maps canonical product paths to rendered reports. Expiry is
// checked lazily at read time.
type ReportCache struct {
	mu      sync.RWMutex
	entries map[string]models.Reports

	ttl      time.Duration
	maxItems int
	storage  interfaces.ReportStorage
	now      func() time.Time
	logger   arbor.ILogger
	metrics  *metrics.Recorder
	group    singleflight.Group

	buildsMu sync.Mutex
	builds   map[string]*build

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	lastPrune atomic.Int64
}

func NewReportCache(opts Options, logger arbor.ILogger) *ReportCache {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &ReportCache{
		entries:  make(map[string]models.Reports),
		builds:   make(map[string]*build),
		ttl:      opts.TTL,
		maxItems: opts.MaxItems,
		storage:  opts.Storage,
		now:      now,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// TTL returns the configured entry lifetime.
func (c *ReportCache) TTL() time.Duration {
	return c.ttl
}

func (c *ReportCache) live(r models.Reports, now time.Time) bool {
	return c.ttl > 0 && now.Before(r.GeneratedAt.Add(c.ttl))
}

// Get returns the live entry for key. An entry written at T is a hit while
// now < T+TTL and a miss from T+TTL on.
func (c *ReportCache) Get(key string) (models.Reports, bool) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		if c.live(entry, now) {
			c.hit()
			return entry, true
		}
		c.miss()
		return models.Reports{}, false
	}

	if entry, ok := c.readThrough(key, now); ok {
		c.hit()
		return entry, true
	}
	c.miss()
	return models.Reports{}, false
}

func (c *ReportCache) hit() {
	c.hits.Add(1)
	c.metrics.CacheHit(context.Background())
}

func (c *ReportCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMiss(context.Background())
}

func (c *ReportCache) evicted() {
	c.evictions.Add(1)
	c.metrics.CacheEvicted(context.Background(), 1)
}

// readThrough loads key from storage. The stored GeneratedAt is kept, so the
// TTL still counts from the original write.
func (c *ReportCache) readThrough(key string, now time.Time) (models.Reports, bool) {
	if c.storage == nil || c.ttl <= 0 {
		return models.Reports{}, false
	}
	entry, err := c.storage.GetReports(context.Background(), key)
	if err != nil {
		if !errors.Is(err, interfaces.ErrReportNotFound) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Report storage read failed")
		}
		return models.Reports{}, false
	}
	if !c.live(entry, now) {
		return models.Reports{}, false
	}

	c.mu.Lock()
	if current, ok := c.entries[key]; !ok || current.GeneratedAt.Before(entry.GeneratedAt) {
		c.entries[key] = entry
		c.evictLocked(key, now)
	}
	c.mu.Unlock()

	c.logger.Debug().Str("key", key).Msg("Report loaded from storage")
	return entry, true
}

// Put stores reports under key. A zero GeneratedAt is stamped with the
// current time.
func (c *ReportCache) Put(key string, reports models.Reports) {
	now := c.now()
	if reports.GeneratedAt.IsZero() {
		reports.GeneratedAt = now
	}
	if reports.ProductPath == "" {
		reports.ProductPath = key
	}

	c.mu.Lock()
	c.entries[key] = reports
	c.evictLocked(key, now)
	c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.SaveReports(context.Background(), reports); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Report storage write failed")
		}
	}
}

// PutIfAbsent stores reports only when key has no live in-memory entry and
// reports whether it did.
func (c *ReportCache) PutIfAbsent(key string, reports models.Reports) bool {
	now := c.now()
	if reports.GeneratedAt.IsZero() {
		reports.GeneratedAt = now
	}
	if reports.ProductPath == "" {
		reports.ProductPath = key
	}

	c.mu.Lock()
	if existing, ok := c.entries[key]; ok && c.live(existing, now) {
		c.mu.Unlock()
		return false
	}
	c.entries[key] = reports
	c.evictLocked(key, now)
	c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.SaveReports(context.Background(), reports); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Report storage write failed")
		}
	}
	return true
}

// evictLocked enforces MaxItems: expired entries go first, then the oldest
// entries other than keep. Caller holds the write lock.
func (c *ReportCache) evictLocked(keep string, now time.Time) {
	if c.maxItems <= 0 || len(c.entries) <= c.maxItems {
		return
	}

	for k, e := range c.entries {
		if k != keep && !c.live(e, now) {
			delete(c.entries, k)
			c.evicted()
		}
	}

	for len(c.entries) > c.maxItems {
		oldestKey := ""
		var oldest time.Time
		for k, e := range c.entries {
			if k == keep {
				continue
			}
			if oldestKey == "" || e.GeneratedAt.Before(oldest) {
				oldestKey, oldest = k, e.GeneratedAt
			}
		}
		if oldestKey == "" {
			return
		}
		delete(c.entries, oldestKey)
		c.evicted()
	}
}

// Invalidate removes key from memory and storage.
func (c *ReportCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.DeleteReports(context.Background(), key); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Report storage delete failed")
		}
	}
}

// Clear drops every entry, including stored ones.
func (c *ReportCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]models.Reports)
	c.mu.Unlock()

	if c.storage != nil {
		if _, err := c.storage.DeleteOlderThan(context.Background(), c.now().Add(time.Nanosecond)); err != nil {
			c.logger.Warn().Err(err).Msg("Report storage clear failed")
		}
	}
}

// PruneExpired removes expired entries and returns how many in-memory
// entries were dropped.
func (c *ReportCache) PruneExpired() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for k, e := range c.entries {
		if !c.live(e, now) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()
	c.lastPrune.Store(now.UnixNano())

	if c.storage != nil {
		cutoff := now.Add(-c.ttl).Add(time.Nanosecond)
		stored, err := c.storage.DeleteOlderThan(context.Background(), cutoff)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Report storage prune failed")
		} else if stored > 0 {
			c.logger.Debug().Int("removed", stored).Msg("Pruned stored reports")
		}
	}
	return removed
}

// Len is the number of in-memory entries, live or not.
func (c *ReportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ReportCache) Stats() Stats {
	now := c.now()

	c.mu.RLock()
	items := len(c.entries)
	liveItems := 0
	for _, e := range c.entries {
		if c.live(e, now) {
			liveItems++
		}
	}
	c.mu.RUnlock()

	s := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Items:     items,
		LiveItems: liveItems,
	}
	if ns := c.lastPrune.Load(); ns != 0 {
		s.LastPrune = time.Unix(0, ns)
	}
	return s
}

// build is the context shared by every caller waiting on one key. It is
// cancelled when the last waiter leaves.
type build struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// GetOrCompute returns the live complete entry for key or builds one with fn.
// Concurrent misses for the same key share a single fn call. The shared call
// keeps running while at least one caller waits on it; once every caller's
// ctx has ended, fn's ctx is cancelled and its result is not cached.
func (c *ReportCache) GetOrCompute(ctx context.Context, key string, fn ComputeFunc) (models.Reports, error) {
	if entry, ok := c.Get(key); ok && entry.Complete {
		return entry, nil
	}

	b, ch := c.join(ctx, key, fn)
	defer c.leave(key, b)

	select {
	case <-ctx.Done():
		return models.Reports{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.Reports{}, res.Err
		}
		return res.Val.(models.Reports), nil
	}
}

// join registers the caller as a waiter on key's build and attaches it to the
// in-flight call, starting one when none is running.
func (c *ReportCache) join(ctx context.Context, key string, fn ComputeFunc) (*build, <-chan singleflight.Result) {
	c.buildsMu.Lock()
	defer c.buildsMu.Unlock()

	b, ok := c.builds[key]
	if !ok {
		buildCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b = &build{ctx: buildCtx, cancel: cancel}
		c.builds[key] = b
	}
	b.waiters++

	ch := c.group.DoChan(key, func() (interface{}, error) {
		if entry, ok := c.peek(key); ok && entry.Complete {
			return entry, nil
		}
		reports, err := fn(b.ctx)
		if err != nil {
			return models.Reports{}, err
		}
		if err := b.ctx.Err(); err != nil {
			c.logger.Debug().Str("key", key).Msg("Report build abandoned by every caller, not caching")
			return models.Reports{}, err
		}
		c.Put(key, reports)
		return reports, nil
	})
	return b, ch
}

// leave drops the caller from b. The last waiter out cancels the build and
// forgets the in-flight call so the next miss starts a fresh one.
func (c *ReportCache) leave(key string, b *build) {
	c.buildsMu.Lock()
	defer c.buildsMu.Unlock()

	b.waiters--
	if b.waiters > 0 {
		return
	}
	b.cancel()
	if c.builds[key] == b {
		delete(c.builds, key)
		c.group.Forget(key)
	}
}

// peek is Get without touching the counters or storage.
func (c *ReportCache) peek(key string) (models.Reports, bool) {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || !c.live(entry, now) {
		return models.Reports{}, false
	}
	return entry, true
}
