package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultFailureThreshold = 5
	defaultCooldown         = time.Minute
)

// ErrCircuitOpen is returned without calling the dependency while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is a consecutive-failure circuit breaker shared by every call of one client.
//
// Closed: calls pass, consecutive failures are counted and reaching the
// threshold opens the breaker. Open: calls are rejected with ErrCircuitOpen
// until the cooldown elapses. Half-open: exactly one probe call passes, others
// are rejected; probe success closes the breaker, probe failure reopens it for
// a full cooldown.
type Breaker struct {
	name             string
	failureThreshold int
	cooldown         time.Duration
	now              func() time.Time
	isFailure        func(error) bool
	onStateChange    func(name string, from, to State)
	l                *zap.Logger

	mu         sync.Mutex
	state      State
	failures   int
	openedAt   time.Time
	probing    bool
	generation uint64
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n int) BreakerOption {
	return func(b *Breaker) {
		b.failureThreshold = n
	}
}

// WithCooldown sets how long the breaker stays open.
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		b.cooldown = d
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) {
		b.now = now
	}
}

// WithFailurePredicate decides which errors count as failures.
// By default every error except context cancellation does.
func WithFailurePredicate(fn func(error) bool) BreakerOption {
	return func(b *Breaker) {
		b.isFailure = fn
	}
}

// WithStateChange registers a hook called on every transition, outside the lock.
func WithStateChange(fn func(name string, from, to State)) BreakerOption {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// WithBreakerLogger sets the logger used for transitions.
func WithBreakerLogger(l *zap.Logger) BreakerOption {
	return func(b *Breaker) {
		b.l = l
	}
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: defaultFailureThreshold,
		cooldown:         defaultCooldown,
		now:              time.Now,
		isFailure:        countsAsFailure,
		l:                zap.NewNop(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.failureThreshold < 1 {
		b.failureThreshold = 1
	}

	return b
}

// State returns the current state. An open breaker whose cooldown has elapsed
// reports half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && !b.now().Before(b.openedAt.Add(b.cooldown)) {
		return StateHalfOpen
	}
	return b.state
}

// Intercept runs next if the breaker admits the call and records its outcome.
func (b *Breaker) Intercept(ctx context.Context, next Call) error {
	generation, err := b.acquire()
	if err != nil {
		return err
	}

	err = next(ctx)
	b.record(generation, err)

	return err
}

// acquire admits a call or rejects it with ErrCircuitOpen.
func (b *Breaker) acquire() (uint64, error) {
	b.mu.Lock()

	var transition func()

	switch b.state {
	case StateOpen:
		if b.now().Before(b.openedAt.Add(b.cooldown)) {
			b.mu.Unlock()
			return 0, errors.Wrapf(ErrCircuitOpen, "%s", b.name)
		}
		transition = b.setState(StateHalfOpen)
		b.probing = true
	case StateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return 0, errors.Wrapf(ErrCircuitOpen, "%s: probe in flight", b.name)
		}
		b.probing = true
	}

	generation := b.generation
	b.mu.Unlock()

	if transition != nil {
		transition()
	}

	return generation, nil
}

// record applies the outcome of a call admitted in generation.
func (b *Breaker) record(generation uint64, err error) {
	b.mu.Lock()

	// the breaker moved on since this call was admitted
	if generation != b.generation {
		b.mu.Unlock()
		return
	}

	var transition func()

	switch {
	case err == nil:
		b.failures = 0
		if b.state == StateHalfOpen {
			b.probing = false
			transition = b.setState(StateClosed)
		}
	case !b.isFailure(err):
		if b.state == StateHalfOpen {
			// give the probe slot back, the outcome says nothing about the dependency
			b.probing = false
		}
	default:
		b.failures++
		switch b.state {
		case StateHalfOpen:
			b.probing = false
			transition = b.trip()
		case StateClosed:
			if b.failures >= b.failureThreshold {
				transition = b.trip()
			}
		}
	}

	b.mu.Unlock()

	if transition != nil {
		transition()
	}
}

// trip opens the breaker. Must be called with mu held.
func (b *Breaker) trip() func() {
	b.openedAt = b.now()
	return b.setState(StateOpen)
}

// setState switches state and starts a new generation. Must be called with mu
// held; the returned func runs the hooks and must be called after unlocking.
func (b *Breaker) setState(to State) func() {
	from := b.state
	b.state = to
	b.generation++
	if to == StateClosed {
		b.failures = 0
	}

	failures := b.failures
	return func() {
		if to == StateOpen {
			b.l.Warn("circuit breaker opened",
				zap.String("breaker", b.name),
				zap.String("from", from.String()),
				zap.Int("consecutive_failures", failures),
				zap.Duration("cooldown", b.cooldown))
		} else {
			b.l.Info("circuit breaker state changed",
				zap.String("breaker", b.name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		}
		if b.onStateChange != nil {
			b.onStateChange(b.name, from, to)
		}
	}
}

func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
