package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/fxgate/internal/domain"
)

// RateService is the contract every rate provider exposes to its callers.
type RateService interface {
	Name() string
	CanHandle(name string) bool
	GetLatestRate(ctx context.Context, base string) (domain.ExchangeRate, error)
	Convert(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error)
	GetHistoricalRates(ctx context.Context, base string, start, end time.Time, page, size int) ([]domain.ExchangeRate, error)
}

// Registry resolves providers by name. It is built once at startup and read-only afterwards.
type Registry struct {
	defaultName string
	providers   []RateService
}

// NewRegistry creates a registry whose empty-name lookups resolve to defaultName.
func NewRegistry(defaultName string, providers ...RateService) (*Registry, error) {
	r := &Registry{
		defaultName: strings.TrimSpace(defaultName),
		providers:   providers,
	}

	for i, p := range providers {
		for _, other := range providers[:i] {
			if other.CanHandle(p.Name()) {
				return nil, fmt.Errorf("duplicate rate provider %q", p.Name())
			}
		}
	}

	if _, err := r.Get(""); err != nil {
		return nil, err
	}

	return r, nil
}

// Get returns the provider answering to name, case-insensitively. An empty name
// selects the default provider.
func (r *Registry) Get(name string) (RateService, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = r.defaultName
	}

	for _, p := range r.providers {
		if p.CanHandle(name) {
			return p, nil
		}
	}

	return nil, fmt.Errorf("%w: %q, registered: %s", domain.ErrProviderNotFound, name, strings.Join(r.Names(), ", "))
}

// Default returns the default provider.
func (r *Registry) Default() RateService {
	p, _ := r.Get("")
	return p
}

// Names lists the registered provider names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}
