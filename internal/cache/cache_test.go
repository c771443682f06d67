package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)}
}

func TestCache_TryGet(t *testing.T) {
	clk := newClock()
	c := New(WithClock(clk.Now))

	_, ok := c.TryGet("latest:USD")
	assert.False(t, ok)

	c.Set("latest:USD", "value", 5*time.Minute)

	v, ok := c.TryGet("latest:USD")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	clk.Advance(5*time.Minute - time.Nanosecond)
	_, ok = c.TryGet("latest:USD")
	assert.True(t, ok)

	clk.Advance(time.Nanosecond)
	_, ok = c.TryGet("latest:USD")
	assert.False(t, ok, "entry must expire exactly at its TTL")
}

func TestCache_ExpiredEntryIsOverwritten(t *testing.T) {
	clk := newClock()
	c := New(WithClock(clk.Now))

	c.Set("k", 1, time.Minute)
	clk.Advance(2 * time.Minute)
	c.Set("k", 2, time.Minute)

	v, ok := Get[int](c, "k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, size(c))
}

func TestCache_NonPositiveTTLStoresNothing(t *testing.T) {
	c := New()
	c.Set("k", 1, 0)

	_, ok := c.TryGet("k")
	assert.False(t, ok)
	assert.Equal(t, 0, size(c))
}

func TestCache_TypedGetMismatch(t *testing.T) {
	c := New()
	c.Set("k", "string", time.Minute)

	_, ok := Get[int](c, "k")
	assert.False(t, ok)
}

func TestCache_SetSweepsExpiredEntries(t *testing.T) {
	clk := newClock()
	c := New(WithClock(clk.Now))

	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)
	clk.Advance(2 * time.Second)

	// within the sweep interval the expired entry stays until overwritten
	c.Set("other", 3, time.Hour)
	assert.Equal(t, 3, size(c))

	clk.Advance(sweepInterval)
	c.Set("another", 4, time.Hour)
	assert.Equal(t, 3, size(c))

	_, ok := c.TryGet("short")
	assert.False(t, ok)
	v, ok := Get[int](c, "long")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			c.Set(key, i, time.Minute)
			_, _ = c.TryGet(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, size(c))
}

func size(c *Cache) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
