package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/vadiminshakov/fxgate/internal/domain"
	"github.com/vadiminshakov/fxgate/internal/metrics"
)

func TestStats_Record(t *testing.T) {
	s := &stats{}

	s.record(nil)
	s.record(fmt.Errorf("%w: open", domain.ErrProviderUnavailable))
	s.record(context.DeadlineExceeded)
	s.record(fmt.Errorf("%w: bad json", domain.ErrDecode))

	assert.EqualValues(t, 4, s.calls.Load())
	assert.EqualValues(t, 1, s.ok.Load())
	assert.EqualValues(t, 1, s.unavailable.Load())
	assert.EqualValues(t, 1, s.otherErrs.Load())
}

func TestUpstreamRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewProviderMetrics(reg, "fxgate")

	m.ObserveUpstream("frankfurter", 200, time.Millisecond)
	m.ObserveUpstream("frankfurter", 503, time.Millisecond)
	m.ObserveUpstream("frankfurter", 0, time.Millisecond)
	m.ObserveUpstream("mirror", 200, time.Millisecond)

	assert.Equal(t, 3.0, upstreamRequests(reg, "frankfurter"))
	assert.Equal(t, 1.0, upstreamRequests(reg, "mirror"))
}
