// Package cache is a TTL bounded in-memory store shared by concurrent rate lookups.
package cache

import (
	"sync"
	"time"
)

// sweepInterval bounds how often Set scans for expired entries.
const sweepInterval = time.Minute

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache maps opaque string keys to values with a per-entry TTL.
// An expired entry is a miss on read. Set drops expired entries at most once per
// sweepInterval, so keys that are never written again do not pile up.
// Size is not bounded.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	now       func() time.Time
	nextSweep time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TryGet returns the value stored under key if it has not expired.
func (c *Cache) TryGet(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}

	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !now.Before(c.nextSweep) {
		c.sweepLocked(now)
		c.nextSweep = now.Add(sweepInterval)
	}
	c.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
}

// sweepLocked drops entries expired at now. c.mu must be held.
func (c *Cache) sweepLocked(now time.Time) {
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Get returns the value under key typed as T. A value of another type is a miss.
func Get[T any](c *Cache, key string) (T, bool) {
	var zero T

	v, ok := c.TryGet(key)
	if !ok {
		return zero, false
	}

	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
