// Package cache holds provider responses for a fixed duration, keyed by the
// exact request parameters. Expiry is passive: entries are simply ignored once
// stale and removed by Sweep. There is no purge-by-key API.
package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/marquee/marquee/internal/metrics"
)

// Entry is a single cached response.
type Entry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
}

// Expired reports whether the entry is stale at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is an optional persistent tier consulted on in-memory misses.
type Store interface {
	GetEntry(ctx context.Context, key string) (*Entry, error)
	PutEntry(ctx context.Context, entry Entry) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Config holds cache configuration.
type Config struct {
	TTL      time.Duration
	MaxItems int
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		TTL:      time.Hour,
		MaxItems: 1000,
	}
}

// Cache provides in-memory caching with TTL for provider responses.
type Cache struct {
	mu       sync.RWMutex
	items    map[string]Entry
	ttl      time.Duration
	maxItems int
	clock    clockwork.Clock
	store    Store
	logger   zerolog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithStore attaches a persistent second tier.
func WithStore(store Store) Option {
	return func(c *Cache) { c.store = store }
}

// WithLogger sets the logger used for store failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) { c.logger = logger.With().Str("component", "cache").Logger() }
}

// New creates a new cache with the given configuration.
func New(cfg Config, opts ...Option) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 1000
	}

	c := &Cache{
		items:    make(map[string]Entry),
		ttl:      cfg.TTL,
		maxItems: cfg.MaxItems,
		clock:    clockwork.NewRealClock(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window applied to new entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns a fresh value for key, falling through to the store on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	now := c.clock.Now()

	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if ok && !item.Expired(now) {
		metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
		return item.Value, true
	}
	metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()

	if c.store == nil {
		return nil, false
	}

	entry, err := c.store.GetEntry(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache store read failed")
		return nil, false
	}
	if entry == nil || entry.Expired(now) {
		metrics.CacheLookups.WithLabelValues("store", "miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("store", "hit").Inc()

	// Promote without extending the original expiry.
	c.mu.Lock()
	c.insertLocked(*entry, now)
	c.mu.Unlock()

	return entry.Value, true
}

// Set stores value under key for the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte) {
	now := c.clock.Now()
	entry := Entry{Key: key, Value: value, ExpiresAt: now.Add(c.ttl)}

	c.mu.Lock()
	c.insertLocked(entry, now)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.PutEntry(ctx, entry); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache store write failed")
		}
	}
}

// Len returns the number of in-memory entries, including stale ones not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Sweep drops expired entries from both tiers and returns how many were removed.
func (c *Cache) Sweep(ctx context.Context) int {
	now := c.clock.Now()

	c.mu.Lock()
	removed := c.dropExpiredLocked(now)
	metrics.CacheEntries.Set(float64(len(c.items)))
	c.mu.Unlock()

	if c.store != nil {
		n, err := c.store.DeleteExpired(ctx, now)
		if err != nil {
			c.logger.Warn().Err(err).Msg("cache store sweep failed")
		} else {
			removed += int(n)
		}
	}

	return removed
}

// insertLocked must be called with the write lock held.
func (c *Cache) insertLocked(entry Entry, now time.Time) {
	if _, exists := c.items[entry.Key]; !exists && len(c.items) >= c.maxItems {
		c.evictLocked(now)
	}
	c.items[entry.Key] = entry
	metrics.CacheEntries.Set(float64(len(c.items)))
}

func (c *Cache) dropExpiredLocked(now time.Time) int {
	removed := 0
	for key, item := range c.items {
		if item.Expired(now) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// evictLocked drops expired entries, then the soonest-to-expire 10% if still full.
func (c *Cache) evictLocked(now time.Time) {
	c.dropExpiredLocked(now)
	if len(c.items) < c.maxItems {
		return
	}

	toRemove := c.maxItems / 10
	if toRemove < 1 {
		toRemove = 1
	}

	keys := make([]string, 0, len(c.items))
	for key := range c.items {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.items[keys[i]].ExpiresAt.Before(c.items[keys[j]].ExpiresAt)
	})

	for _, key := range keys[:toRemove] {
		delete(c.items, key)
	}
}
