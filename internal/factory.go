package internal

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/fxgate/config"
	"github.com/vadiminshakov/fxgate/internal/cache"
	"github.com/vadiminshakov/fxgate/internal/clients"
	"github.com/vadiminshakov/fxgate/internal/metrics"
	"github.com/vadiminshakov/fxgate/internal/resilience"
	"github.com/vadiminshakov/fxgate/internal/services/rates"
)

// NewRegistryFromConfig builds one provider per configured entry, each with its
// own cache, retry policy and circuit breaker. m may be nil.
func NewRegistryFromConfig(conf config.Config, l *zap.Logger, m *metrics.ProviderMetrics) (*Registry, error) {
	if l == nil {
		l = zap.NewNop()
	}

	providers := make([]RateService, 0, len(conf.Providers))
	for _, pc := range conf.Providers {
		p, err := newRateService(pc, conf, l.With(zap.String("provider", pc.Name)), m)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider %q", pc.Name)
		}
		providers = append(providers, p)
	}

	return NewRegistry(conf.DefaultProvider, providers...)
}

// newRateService is the single point dispatching on provider kind.
func newRateService(pc config.Provider, conf config.Config, l *zap.Logger, m *metrics.ProviderMetrics) (RateService, error) {
	switch strings.ToLower(pc.Kind) {
	case config.KindFrankfurter:
		return newFrankfurterProvider(pc, conf, l, m)
	default:
		return nil, fmt.Errorf("unsupported provider kind: %s", pc.Kind)
	}
}

func newFrankfurterProvider(pc config.Provider, conf config.Config, l *zap.Logger, m *metrics.ProviderMetrics) (*rates.Provider, error) {
	client, err := clients.NewFrankfurterClient(pc.Name, pc.BaseURL,
		clients.WithTimeout(pc.Timeout),
		clients.WithLogger(l),
		clients.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	policy, _ := resilience.NewPolicy(pc.Name, l, policyConfig(pc.Name, conf.Resilience, m),
		resilience.WithStateChange(func(name string, _, to resilience.State) {
			m.SetBreakerState(name, int(to))
		}),
	)

	return rates.NewProvider(pc.Name, client,
		rates.WithPolicy(policy),
		rates.WithCache(cache.New()),
		rates.WithTTLs(rates.TTLs{
			Latest:     conf.Cache.LatestTTL,
			Convert:    conf.Cache.ConvertTTL,
			Historical: conf.Cache.HistoricalTTL,
		}),
		rates.WithLogger(l),
		rates.WithMetrics(m),
	), nil
}

func policyConfig(name string, r config.Resilience, m *metrics.ProviderMetrics) resilience.PolicyConfig {
	return resilience.PolicyConfig{
		MaxRetries:        r.MaxRetries,
		InitialBackoff:    r.InitialBackoff,
		BackoffMultiplier: r.BackoffMultiplier,
		FailureThreshold:  r.FailureThreshold,
		Cooldown:          r.Cooldown,
		OnRetry: func(int) {
			m.ObserveRetry(name)
		},
	}
}
