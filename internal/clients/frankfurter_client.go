package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/fxgate/internal/correlation"
	"github.com/vadiminshakov/fxgate/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultFrankfurterURL public Frankfurter API.
	DefaultFrankfurterURL = "https://api.frankfurter.dev/v1/"

	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
	maxLoggedBody    = 512
)

// ErrResponseTooLarge response body exceeds maxResponseBytes.
var ErrResponseTooLarge = errors.New("rate provider response too large")

// StatusError non-2xx response from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rate provider returned status %d: %s", e.StatusCode, e.Body)
}

// FrankfurterClient performs single GET attempts against a Frankfurter compatible API.
// It never retries; resilience is applied by the caller.
type FrankfurterClient struct {
	name       string
	baseURL    *url.URL
	httpClient *http.Client
	l          *zap.Logger
	metrics    *metrics.ProviderMetrics
}

// ClientOption configures a FrankfurterClient.
type ClientOption func(*FrankfurterClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(fc *FrankfurterClient) {
		fc.httpClient = c
	}
}

// WithTimeout sets the per-attempt timeout of the default http.Client.
func WithTimeout(d time.Duration) ClientOption {
	return func(fc *FrankfurterClient) {
		if d > 0 {
			fc.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(fc *FrankfurterClient) {
		fc.l = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.ProviderMetrics) ClientOption {
	return func(fc *FrankfurterClient) {
		fc.metrics = m
	}
}

// NewFrankfurterClient creates a client for the API rooted at baseURL.
func NewFrankfurterClient(name, baseURL string, opts ...ClientOption) (*FrankfurterClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultFrankfurterURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base url %q", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &FrankfurterClient{
		name:       name,
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		l:          zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the API root.
func (c *FrankfurterClient) BaseURL() string {
	return c.baseURL.String()
}

// Get issues GET <base>/<path>?<query> and returns the body of a 2xx response.
// Transport errors and non-2xx responses are returned as errors; the latter as *StatusError.
// The correlation id carried by ctx is forwarded in the X-Correlation-ID header.
func (c *FrankfurterClient) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	ref := &url.URL{Path: strings.TrimPrefix(path, "/")}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	target := c.baseURL.ResolveReference(ref)
	apiPath := ref.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}
	req.Header.Set("Accept", "application/json")

	correlationID := correlation.FromContext(ctx)
	if correlationID != "" {
		req.Header.Set(correlation.Header, correlationID)
	}

	c.l.Info("calling rate provider",
		zap.String("provider", c.name),
		zap.String("path", apiPath),
		zap.String("correlation_id", correlationID))

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(c.name, 0, time.Since(started))
		c.l.Error("rate provider request failed",
			zap.String("provider", c.name),
			zap.String("path", apiPath),
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	// one byte over the limit tells a full body from a cut one
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	elapsed := time.Since(started)
	c.metrics.ObserveUpstream(c.name, resp.StatusCode, elapsed)
	if err != nil {
		c.l.Error("failed to read rate provider response",
			zap.String("provider", c.name),
			zap.String("path", apiPath),
			zap.Int("status", resp.StatusCode),
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if len(body) > maxResponseBytes {
		c.l.Error("rate provider response too large",
			zap.String("provider", c.name),
			zap.String("path", apiPath),
			zap.Int("status", resp.StatusCode),
			zap.Int("limit", maxResponseBytes),
			zap.String("correlation_id", correlationID))
		return nil, errors.Wrapf(ErrResponseTooLarge, "more than %d bytes from %s", maxResponseBytes, apiPath)
	}

	c.l.Info("rate provider responded",
		zap.String("provider", c.name),
		zap.String("path", apiPath),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
		zap.String("body", truncate(string(body), maxLoggedBody)),
		zap.String("correlation_id", correlationID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxLoggedBody)}
		c.l.Error("rate provider returned non-success status",
			zap.String("provider", c.name),
			zap.String("path", apiPath),
			zap.Int("status", resp.StatusCode),
			zap.String("correlation_id", correlationID))
		return nil, statusErr
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
