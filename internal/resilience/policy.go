package resilience

import (
	"time"

	"github.com/vadiminshakov/fxgate/pkg/retrier"
	"go.uber.org/zap"
)

// PolicyConfig parameters of the default provider policy.
type PolicyConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	FailureThreshold  int
	Cooldown          time.Duration

	// OnRetry is called before each backoff wait.
	OnRetry func(attempt int)
}

// DefaultPolicyConfig 3 retries at 2s/4s/8s, breaker opening after 5 failures for 1 minute.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MaxRetries:        3,
		InitialBackoff:    2 * time.Second,
		BackoffMultiplier: 2,
		FailureThreshold:  defaultFailureThreshold,
		Cooldown:          defaultCooldown,
	}
}

// NewPolicy builds the retry -> breaker pipeline for one provider and returns
// the breaker so its owner can observe it.
func NewPolicy(name string, l *zap.Logger, cfg PolicyConfig, breakerOpts ...BreakerOption) (*Pipeline, *Breaker) {
	if l == nil {
		l = zap.NewNop()
	}

	opts := append([]BreakerOption{
		WithFailureThreshold(cfg.FailureThreshold),
		WithCooldown(cfg.Cooldown),
		WithBreakerLogger(l),
	}, breakerOpts...)
	breaker := NewBreaker(name, opts...)

	retry := NewRetry(name, l, cfg.OnRetry,
		retrier.WithMaxRetries(cfg.MaxRetries),
		retrier.WithInitialInterval(cfg.InitialBackoff),
		retrier.WithMultiplier(cfg.BackoffMultiplier),
		retrier.WithJitter(0),
	)

	return NewPipeline(retry, breaker), breaker
}
