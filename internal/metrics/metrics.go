// Package metrics exposes Prometheus collectors for rate providers.
package metrics

import (
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Cache lookup results.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// ProviderMetrics collectors shared by every provider of one process.
// A nil *ProviderMetrics is valid and records nothing.
type ProviderMetrics struct {
	CacheLookupsTotal    *prometheus.CounterVec
	UpstreamRequests     *prometheus.CounterVec
	UpstreamDuration     *prometheus.HistogramVec
	RetriesTotal         *prometheus.CounterVec
	BreakerState         *prometheus.GaugeVec
	OperationErrorsTotal *prometheus.CounterVec
}

// NewProviderMetrics registers the collectors on reg.
func NewProviderMetrics(reg prometheus.Registerer, namespace string) *ProviderMetrics {
	factory := promauto.With(reg)

	return &ProviderMetrics{
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_cache_lookups_total",
				Help:      "Rate cache lookups by operation and result",
			},
			[]string{"provider", "operation", "result"},
		),
		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Outbound rate provider requests by response status (0 for transport errors)",
			},
			[]string{"provider", "status"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Outbound rate provider request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_retries_total",
				Help:      "Retries of outbound rate provider requests",
			},
			[]string{"provider"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open",
			},
			[]string{"provider"},
		),
		OperationErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_errors_total",
				Help:      "Failed provider operations by error kind",
			},
			[]string{"provider", "operation", "kind"},
		),
	}
}

// ObserveCacheLookup counts a cache hit or miss.
func (m *ProviderMetrics) ObserveCacheLookup(provider, operation string, hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.CacheLookupsTotal.WithLabelValues(provider, operation, result).Inc()
}

// ObserveUpstream records one outbound attempt.
func (m *ProviderMetrics) ObserveUpstream(provider string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(provider, strconv.Itoa(status)).Inc()
	m.UpstreamDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveRetry counts a retry.
func (m *ProviderMetrics) ObserveRetry(provider string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(provider).Inc()
}

// SetBreakerState publishes the breaker state as a number.
func (m *ProviderMetrics) SetBreakerState(provider string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(provider).Set(float64(state))
}

// ObserveError counts a failed operation.
func (m *ProviderMetrics) ObserveError(provider, operation, kind string) {
	if m == nil {
		return
	}
	m.OperationErrorsTotal.WithLabelValues(provider, operation, kind).Inc()
}

// WriteText writes everything g gathers in the Prometheus text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrapf(err, "failed to write metric %s", mf.GetName())
		}
	}

	return nil
}
