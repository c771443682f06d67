// Package resilience wraps outbound provider calls in an ordered chain of
// interceptors: retry with exponential backoff around a circuit breaker.
package resilience

import (
	"context"
)

// Call is a single attempt at the dependency. A nil error means success.
type Call func(ctx context.Context) error

// Interceptor runs next zero or more times and returns the final outcome.
type Interceptor interface {
	Intercept(ctx context.Context, next Call) error
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(ctx context.Context, next Call) error

// Intercept calls f.
func (f InterceptorFunc) Intercept(ctx context.Context, next Call) error {
	return f(ctx, next)
}

// Pipeline composes interceptors, the first one being the outermost.
type Pipeline struct {
	interceptors []Interceptor
}

// NewPipeline creates a pipeline. NewPipeline(retry, breaker) makes every
// retry attempt pass through the breaker.
func NewPipeline(interceptors ...Interceptor) *Pipeline {
	return &Pipeline{interceptors: interceptors}
}

// Execute runs call through the chain.
func (p *Pipeline) Execute(ctx context.Context, call Call) error {
	if p == nil {
		return call(ctx)
	}

	chained := call
	for i := len(p.interceptors) - 1; i >= 0; i-- {
		interceptor, next := p.interceptors[i], chained
		chained = func(ctx context.Context) error {
			return interceptor.Intercept(ctx, next)
		}
	}

	return chained(ctx)
}

// ExecuteWithData runs fn through the pipeline and returns the value of the successful attempt.
func ExecuteWithData[T any](ctx context.Context, p *Pipeline, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Execute(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
