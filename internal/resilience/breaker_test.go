package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failed")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func failing(calls *int32) Call {
	return func(ctx context.Context) error {
		atomic.AddInt32(calls, 1)
		return errUpstream
	}
}

func succeeding(calls *int32) Call {
	return func(ctx context.Context) error {
		atomic.AddInt32(calls, 1)
		return nil
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("test", WithClock(clock.Now))
	ctx := context.Background()

	var calls int32
	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, b.Intercept(ctx, failing(&calls)), errUpstream)
		assert.Equal(t, StateClosed, b.State())
	}

	assert.ErrorIs(t, b.Intercept(ctx, failing(&calls)), errUpstream)
	assert.Equal(t, StateOpen, b.State())
	assert.EqualValues(t, 5, calls)

	err := b.Intercept(ctx, failing(&calls))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.EqualValues(t, 5, calls, "open breaker must not call the dependency")
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker("test", WithFailureThreshold(3))
	ctx := context.Background()

	var calls int32
	_ = b.Intercept(ctx, failing(&calls))
	_ = b.Intercept(ctx, failing(&calls))
	require.NoError(t, b.Intercept(ctx, succeeding(&calls)))
	_ = b.Intercept(ctx, failing(&calls))
	_ = b.Intercept(ctx, failing(&calls))

	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Run("successful probe closes", func(t *testing.T) {
		clock := newFakeClock()
		b := NewBreaker("test", WithClock(clock.Now), WithFailureThreshold(1))
		ctx := context.Background()

		var calls int32
		_ = b.Intercept(ctx, failing(&calls))
		require.Equal(t, StateOpen, b.State())

		clock.Advance(59 * time.Second)
		assert.ErrorIs(t, b.Intercept(ctx, succeeding(&calls)), ErrCircuitOpen)

		clock.Advance(time.Second)
		assert.Equal(t, StateHalfOpen, b.State())
		require.NoError(t, b.Intercept(ctx, succeeding(&calls)))
		assert.Equal(t, StateClosed, b.State())
		assert.EqualValues(t, 2, calls)
	})

	t.Run("failed probe reopens for full cooldown", func(t *testing.T) {
		clock := newFakeClock()
		b := NewBreaker("test", WithClock(clock.Now), WithFailureThreshold(1))
		ctx := context.Background()

		var calls int32
		_ = b.Intercept(ctx, failing(&calls))
		clock.Advance(time.Minute)

		assert.ErrorIs(t, b.Intercept(ctx, failing(&calls)), errUpstream)
		assert.Equal(t, StateOpen, b.State())

		clock.Advance(30 * time.Second)
		assert.ErrorIs(t, b.Intercept(ctx, succeeding(&calls)), ErrCircuitOpen)
		assert.EqualValues(t, 2, calls)

		clock.Advance(30 * time.Second)
		require.NoError(t, b.Intercept(ctx, succeeding(&calls)))
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("cancelled probe releases the slot", func(t *testing.T) {
		clock := newFakeClock()
		b := NewBreaker("test", WithClock(clock.Now), WithFailureThreshold(1))
		ctx := context.Background()

		var calls int32
		_ = b.Intercept(ctx, failing(&calls))
		clock.Advance(time.Minute)

		err := b.Intercept(ctx, func(ctx context.Context) error { return context.Canceled })
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StateHalfOpen, b.State())

		require.NoError(t, b.Intercept(ctx, succeeding(&calls)))
		assert.Equal(t, StateClosed, b.State())
	})
}

func TestBreaker_SingleConcurrentProbe(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("test", WithClock(clock.Now), WithFailureThreshold(1))
	ctx := context.Background()

	var calls int32
	_ = b.Intercept(ctx, failing(&calls))
	clock.Advance(time.Minute)

	release := make(chan struct{})
	probeStarted := make(chan struct{})
	var probes int32

	done := make(chan error, 1)
	go func() {
		done <- b.Intercept(ctx, func(ctx context.Context) error {
			atomic.AddInt32(&probes, 1)
			close(probeStarted)
			<-release
			return nil
		})
	}()
	<-probeStarted

	var wg sync.WaitGroup
	var rejected int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Intercept(ctx, func(ctx context.Context) error {
				atomic.AddInt32(&probes, 1)
				return nil
			})
			if errors.Is(err, ErrCircuitOpen) {
				atomic.AddInt32(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	close(release)
	require.NoError(t, <-done)

	assert.EqualValues(t, 1, probes)
	assert.EqualValues(t, 20, rejected)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_StaleResultsIgnored(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("test", WithClock(clock.Now), WithFailureThreshold(2))
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Intercept(ctx, func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	var calls int32
	_ = b.Intercept(ctx, failing(&calls))
	_ = b.Intercept(ctx, failing(&calls))
	require.Equal(t, StateOpen, b.State())

	// a success admitted before the breaker opened must not close it
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_StateChangeHook(t *testing.T) {
	clock := newFakeClock()
	var transitions []string
	b := NewBreaker("frankfurter",
		WithClock(clock.Now),
		WithFailureThreshold(1),
		WithStateChange(func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		}))
	ctx := context.Background()

	var calls int32
	_ = b.Intercept(ctx, failing(&calls))
	clock.Advance(time.Minute)
	_ = b.Intercept(ctx, succeeding(&calls))

	assert.Equal(t, []string{
		"frankfurter:closed->open",
		"frankfurter:open->half-open",
		"frankfurter:half-open->closed",
	}, transitions)
}
