// Package rates implements the resilient rate-provider client: cached,
// retried and circuit-broken access to a Frankfurter compatible API.
package rates

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/fxgate/internal/cache"
	"github.com/vadiminshakov/fxgate/internal/correlation"
	"github.com/vadiminshakov/fxgate/internal/domain"
	"github.com/vadiminshakov/fxgate/internal/metrics"
	"github.com/vadiminshakov/fxgate/internal/resilience"
	"go.uber.org/zap"
)

const (
	opLatest     = "latest"
	opConvert    = "convert"
	opHistorical = "historical"

	defaultLatestTTL     = 5 * time.Minute
	defaultConvertTTL    = 5 * time.Minute
	defaultHistoricalTTL = 24 * time.Hour
)

// transport performs one outbound GET attempt.
type transport interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// TTLs cache lifetimes per operation.
type TTLs struct {
	Latest     time.Duration
	Convert    time.Duration
	Historical time.Duration
}

// DefaultTTLs 5 minutes for latest and converted rates, a day for published history.
func DefaultTTLs() TTLs {
	return TTLs{
		Latest:     defaultLatestTTL,
		Convert:    defaultConvertTTL,
		Historical: defaultHistoricalTTL,
	}
}

// Provider resolves latest rates, conversions and historical ranges through
// the cache and the resilience policy. Safe for concurrent use. Concurrent
// misses on the same key each go upstream.
type Provider struct {
	name      string
	transport transport
	policy    *resilience.Pipeline
	cache     *cache.Cache
	ttl       TTLs
	metrics   *metrics.ProviderMetrics
	l         *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithPolicy sets the resilience pipeline wrapping every outbound attempt.
func WithPolicy(p *resilience.Pipeline) Option {
	return func(pr *Provider) {
		pr.policy = p
	}
}

// WithCache sets the cache. Keys are not namespaced, so give each provider its own.
func WithCache(c *cache.Cache) Option {
	return func(pr *Provider) {
		pr.cache = c
	}
}

// WithTTLs sets the cache lifetimes.
func WithTTLs(ttl TTLs) Option {
	return func(pr *Provider) {
		pr.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(pr *Provider) {
		pr.l = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.ProviderMetrics) Option {
	return func(pr *Provider) {
		pr.metrics = m
	}
}

// NewProvider creates a provider named name over t. Without WithPolicy the
// default retry -> breaker policy is used; without WithCache a private cache.
func NewProvider(name string, t transport, opts ...Option) *Provider {
	p := &Provider{
		name:      name,
		transport: t,
		ttl:       DefaultTTLs(),
		l:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.policy == nil {
		p.policy, _ = resilience.NewPolicy(name, p.l, resilience.DefaultPolicyConfig())
	}
	if p.cache == nil {
		p.cache = cache.New()
	}

	return p
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// CanHandle reports whether name refers to this provider.
func (p *Provider) CanHandle(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), p.name)
}

// GetLatestRate returns the latest rates against base.
func (p *Provider) GetLatestRate(ctx context.Context, base string) (domain.ExchangeRate, error) {
	base = domain.NormalizeCurrency(base)
	if base == "" {
		return domain.ExchangeRate{}, p.fail(ctx, opLatest, fmt.Errorf("%w: base currency is required", domain.ErrInvalidArgument))
	}

	key := cacheKey(opLatest, base)
	if cached, ok := cache.Get[domain.ExchangeRate](p.cache, key); ok {
		p.metrics.ObserveCacheLookup(p.name, opLatest, true)
		return cached, nil
	}
	p.metrics.ObserveCacheLookup(p.name, opLatest, false)

	payload, err := p.fetch(ctx, opLatest, "latest", url.Values{"base": {base}})
	if err != nil {
		return domain.ExchangeRate{}, p.fail(ctx, opLatest, err)
	}

	rate, err := DecodeLatest(payload)
	if err != nil {
		return domain.ExchangeRate{}, p.fail(ctx, opLatest, err)
	}

	p.cache.Set(key, rate, p.ttl.Latest)

	return rate, nil
}

// Convert returns amount of from expressed in to. The cached quote keeps the
// provider's value with the amount it was priced for, so any amount can be
// derived from it without baking in the caller's.
func (p *Provider) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	pair, err := domain.NewPair(from, to)
	if err != nil {
		return decimal.Decimal{}, p.fail(ctx, opConvert, err)
	}
	if err := pair.Supported(); err != nil {
		return decimal.Decimal{}, p.fail(ctx, opConvert, err)
	}
	if amount.IsNegative() {
		return decimal.Decimal{}, p.fail(ctx, opConvert,
			fmt.Errorf("%w: amount must be non-negative, got %s", domain.ErrInvalidArgument, amount.String()))
	}

	key := cacheKey(opConvert, pair.From, pair.To)
	if q, ok := cache.Get[Quote](p.cache, key); ok {
		p.metrics.ObserveCacheLookup(p.name, opConvert, true)
		return q.For(amount), nil
	}
	p.metrics.ObserveCacheLookup(p.name, opConvert, false)

	// a zero amount quotes nothing, ask for one unit instead
	quoted := amount
	if quoted.IsZero() {
		quoted = decimal.NewFromInt(1)
	}

	payload, err := p.fetch(ctx, opConvert, "latest", url.Values{
		"from":   {pair.From},
		"to":     {pair.To},
		"amount": {quoted.String()},
	})
	if err != nil {
		return decimal.Decimal{}, p.fail(ctx, opConvert, err)
	}

	q, err := DecodeConvertedRate(payload, pair.To)
	if err != nil {
		return decimal.Decimal{}, p.fail(ctx, opConvert, err)
	}

	p.cache.Set(key, q, p.ttl.Convert)

	return q.For(amount), nil
}

// GetHistoricalRates returns one page of daily rates against base, ascending by date.
// A page past the end of the range is an empty result.
func (p *Provider) GetHistoricalRates(ctx context.Context, base string, start, end time.Time, page, size int) ([]domain.ExchangeRate, error) {
	base = domain.NormalizeCurrency(base)
	if base == "" {
		return nil, p.fail(ctx, opHistorical, fmt.Errorf("%w: base currency is required", domain.ErrInvalidArgument))
	}

	window, ok, err := domain.PageRequest{Start: start, End: end, Page: page, Size: size}.Window()
	if err != nil {
		return nil, p.fail(ctx, opHistorical, err)
	}
	if !ok {
		return []domain.ExchangeRate{}, nil
	}

	key := cacheKey(opHistorical, base, domain.FormatDate(window.Start), domain.FormatDate(window.End))
	if cached, ok := cache.Get[[]domain.ExchangeRate](p.cache, key); ok {
		p.metrics.ObserveCacheLookup(p.name, opHistorical, true)
		return append([]domain.ExchangeRate(nil), cached...), nil
	}
	p.metrics.ObserveCacheLookup(p.name, opHistorical, false)

	payload, err := p.fetch(ctx, opHistorical, window.String(), url.Values{"base": {base}})
	if err != nil {
		return nil, p.fail(ctx, opHistorical, err)
	}

	decoded, err := DecodeHistorical(payload)
	if err != nil {
		return nil, p.fail(ctx, opHistorical, err)
	}

	// kept as sent: a range may be anchored on the business day before the window
	p.cache.Set(key, decoded, p.ttl.Historical)

	return append([]domain.ExchangeRate(nil), decoded...), nil
}

// fetch runs one logical request through the policy. Exhausted retries and an
// open breaker come back as domain.ErrProviderUnavailable wrapping the last cause.
func (p *Provider) fetch(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	payload, err := resilience.ExecuteWithData(ctx, p.policy, func(ctx context.Context) ([]byte, error) {
		return p.transport.Get(ctx, path, query)
	})
	if err == nil {
		return payload, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.Wrapf(ctxErr, "%s %s", op, path)
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrProviderUnavailable, p.name, err)
	}
	return nil, fmt.Errorf("%w: %s: retries exhausted: %w", domain.ErrProviderUnavailable, p.name, err)
}

// fail logs err with the operation context and returns it unchanged.
func (p *Provider) fail(ctx context.Context, op string, err error) error {
	kind := errorKind(err)
	p.metrics.ObserveError(p.name, op, kind)

	fields := []zap.Field{
		zap.String("provider", p.name),
		zap.String("operation", op),
		zap.String("kind", kind),
		zap.String("correlation_id", correlation.FromContext(ctx)),
		zap.Error(err),
	}
	switch kind {
	case "invalid_argument", "unsupported_currency", "cancelled":
		p.l.Warn("rate request rejected", fields...)
	default:
		p.l.Error("rate request failed", fields...)
	}

	return err
}

func cacheKey(op string, parts ...string) string {
	return op + ":" + strings.Join(parts, ":")
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, domain.ErrUnsupportedCurrency):
		return "unsupported_currency"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, domain.ErrDecode):
		return "decode"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}
