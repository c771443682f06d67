package resilience

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/fxgate/pkg/retrier"
	"go.uber.org/zap"
)

// Retry interceptor backed by retrier.Retrier. An open breaker is never retried.
type Retry struct {
	r *retrier.Retrier
}

// NewRetry creates a retry interceptor. hook, when set, is told about every retry.
// The options are applied after the defaults, so a caller supplied WithRetryIf
// replaces the open-breaker rule.
func NewRetry(name string, l *zap.Logger, hook func(attempt int), opts ...retrier.Option) *Retry {
	if l == nil {
		l = zap.NewNop()
	}

	base := []retrier.Option{
		retrier.WithRetryIf(Retryable),
		retrier.WithOnRetry(func(attempt int, wait time.Duration, err error) {
			l.Info("retrying rate provider call",
				zap.String("provider", name),
				zap.Int("retry", attempt),
				zap.Duration("backoff", wait),
				zap.Error(err))
			if hook != nil {
				hook(attempt)
			}
		}),
	}

	return &Retry{r: retrier.New(append(base, opts...)...)}
}

// Intercept calls next until it succeeds, the error is not retryable or retries run out.
func (r *Retry) Intercept(ctx context.Context, next Call) error {
	return r.r.Do(ctx, func(ctx context.Context) error {
		return next(ctx)
	})
}

// Retryable reports whether another attempt may help.
func Retryable(err error) bool {
	return !errors.Is(err, ErrCircuitOpen) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
