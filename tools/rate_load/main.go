// Command rate_load drives concurrent conversions through the configured rate
// provider and reports how many reached the upstream API. It is used to observe
// cache stampedes and circuit breaker behaviour under load.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/fxgate/config"
	"github.com/vadiminshakov/fxgate/internal"
	"github.com/vadiminshakov/fxgate/internal/correlation"
	"github.com/vadiminshakov/fxgate/internal/domain"
	"github.com/vadiminshakov/fxgate/internal/metrics"
)

func main() {
	var (
		configPath   string
		providerName string
		workers      int
		testDuration time.Duration
		rampUp       time.Duration
		from, to     string
	)

	flag.StringVar(&configPath, "config", "", "path to yaml config, environment only when empty")
	flag.StringVar(&providerName, "provider", "", "rate provider name")
	flag.IntVar(&workers, "workers", 50, "number of concurrent callers")
	flag.DurationVar(&testDuration, "dur", 30*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", 0, "ramp-up duration (spread worker starts across this window)")
	flag.StringVar(&from, "from", "USD", "source currency")
	flag.StringVar(&to, "to", "EUR", "target currency")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if workers <= 0 {
		logger.Fatal("invalid workers", zap.Int("workers", workers))
	}

	conf, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewProviderMetrics(reg, conf.Metrics.Namespace)

	registry, err := internal.NewRegistryFromConfig(conf, logger, m)
	if err != nil {
		logger.Fatal("failed to build providers", zap.Error(err))
	}
	svc, err := registry.Get(providerName)
	if err != nil {
		logger.Fatal("failed to select provider", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if testDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, testDuration)
		defer cancel()
	}

	logger.Info("starting rate load",
		zap.String("provider", svc.Name()),
		zap.String("pair", from+"_"+to),
		zap.Int("workers", workers),
		zap.Duration("duration", testDuration),
		zap.Duration("ramp", rampUp))

	s := &stats{}
	start := time.Now()

	var interval time.Duration
	if rampUp > 0 {
		interval = rampUp / time.Duration(workers)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(id + 1))
			for ctx.Err() == nil {
				callCtx := correlation.WithID(ctx, fmt.Sprintf("load-%d-%d", id, s.calls.Load()))
				_, err := svc.Convert(callCtx, from, to, amount)
				s.record(err)
			}
		}(i)
	}

	ticker := time.NewTicker(5 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("status", s.fields(reg, svc.Name(), time.Since(start))...)
			}
		}
	}()

	wg.Wait()

	elapsed := time.Since(start)
	if elapsed == 0 {
		elapsed = time.Millisecond
	}

	fmt.Printf("done: calls=%d ok=%d unavailable=%d other_errs=%d upstream=%.0f elapsed=%s calls/s=%.2f\n",
		s.calls.Load(),
		s.ok.Load(),
		s.unavailable.Load(),
		s.otherErrs.Load(),
		upstreamRequests(reg, svc.Name()),
		elapsed.Truncate(time.Millisecond),
		float64(s.calls.Load())/elapsed.Seconds(),
	)
}

type stats struct {
	calls       atomic.Int64
	ok          atomic.Int64
	unavailable atomic.Int64
	otherErrs   atomic.Int64
}

func (s *stats) record(err error) {
	s.calls.Add(1)
	switch {
	case err == nil:
		s.ok.Add(1)
	case errors.Is(err, domain.ErrProviderUnavailable):
		s.unavailable.Add(1)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		s.otherErrs.Add(1)
	}
}

func (s *stats) fields(g prometheus.Gatherer, provider string, elapsed time.Duration) []zap.Field {
	return []zap.Field{
		zap.Int64("calls", s.calls.Load()),
		zap.Int64("ok", s.ok.Load()),
		zap.Int64("unavailable", s.unavailable.Load()),
		zap.Int64("other_errs", s.otherErrs.Load()),
		zap.Float64("upstream", upstreamRequests(g, provider)),
		zap.Duration("elapsed", elapsed.Truncate(time.Second)),
	}
}

// upstreamRequests sums outbound attempts of provider over every status.
func upstreamRequests(g prometheus.Gatherer, provider string) float64 {
	families, err := g.Gather()
	if err != nil {
		return 0
	}

	var total float64
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "upstream_requests_total") {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "provider" && label.GetValue() == provider {
					total += metric.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}
