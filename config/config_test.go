package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
default_provider: Mirror
providers:
  - name: frankfurter
  - name: mirror
    base_url: http://localhost:8080/v1/
    timeout: 3s
cache:
  latest_ttl: 1m
  convert_ttl: 2m
  historical_ttl: 48h
resilience:
  max_retries: 2
  initial_backoff: 500ms
  backoff_multiplier: 3
  failure_threshold: 4
  cooldown: 30s
metrics:
  enabled: true
  namespace: rates
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "Mirror", cfg.DefaultProvider)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, Provider{Name: "frankfurter", Kind: KindFrankfurter, BaseURL: DefaultBaseURL, Timeout: DefaultTimeout}, cfg.Providers[0])
	assert.Equal(t, "http://localhost:8080/v1/", cfg.Providers[1].BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Providers[1].Timeout)
	assert.Equal(t, Cache{LatestTTL: time.Minute, ConvertTTL: 2 * time.Minute, HistoricalTTL: 48 * time.Hour}, cfg.Cache)
	assert.Equal(t, Resilience{
		MaxRetries:        2,
		InitialBackoff:    500 * time.Millisecond,
		BackoffMultiplier: 3,
		FailureThreshold:  4,
		Cooldown:          30 * time.Second,
	}, cfg.Resilience)
	assert.Equal(t, Metrics{Enabled: true, Namespace: "rates"}, cfg.Metrics)
}

func TestLoad_EnvironmentDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FXGATE_LOG_LEVEL", "warn")
	t.Setenv("FXGATE_MAX_RETRIES", "1")
	t.Setenv("FXGATE_BREAKER_COOLDOWN", "10s")

	path := writeConfig(t, "log_level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 1, cfg.Resilience.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Resilience.Cooldown)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{name: "log level", mutate: func(c *Config) { c.LogLevel = "loud" }, param: "log_level"},
		{name: "unknown default", mutate: func(c *Config) { c.DefaultProvider = "ecb" }, param: "default_provider"},
		{name: "empty provider name", mutate: func(c *Config) { c.Providers[0].Name = "" }, param: "providers[0].name"},
		{name: "duplicate provider", mutate: func(c *Config) {
			c.Providers = append(c.Providers, Provider{Name: "FRANKFURTER", Kind: KindFrankfurter})
		}, param: "providers[1].name"},
		{name: "provider kind", mutate: func(c *Config) { c.Providers[0].Kind = "ecb" }, param: "providers[0].kind"},
		{name: "latest ttl", mutate: func(c *Config) { c.Cache.LatestTTL = 0 }, param: "cache.latest_ttl"},
		{name: "historical ttl", mutate: func(c *Config) { c.Cache.HistoricalTTL = -time.Second }, param: "cache.historical_ttl"},
		{name: "max retries", mutate: func(c *Config) { c.Resilience.MaxRetries = -1 }, param: "resilience.max_retries"},
		{name: "initial backoff", mutate: func(c *Config) { c.Resilience.InitialBackoff = 0 }, param: "resilience.initial_backoff"},
		{name: "multiplier", mutate: func(c *Config) { c.Resilience.BackoffMultiplier = 0.5 }, param: "resilience.backoff_multiplier"},
		{name: "threshold", mutate: func(c *Config) { c.Resilience.FailureThreshold = 0 }, param: "resilience.failure_threshold"},
		{name: "cooldown", mutate: func(c *Config) { c.Resilience.Cooldown = 0 }, param: "resilience.cooldown"},
		{name: "metrics namespace", mutate: func(c *Config) { c.Metrics = Metrics{Enabled: true} }, param: "metrics.namespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "'"+tt.param+"'")
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer

	f, err := ParseFlags([]string{"-config", "fx.yaml", "-provider", "mirror", "convert", "usd", "eur", "10"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "fx.yaml", f.ConfigPath)
	assert.Equal(t, "mirror", f.Provider)
	assert.Equal(t, CommandConvert, f.Command)
	assert.Equal(t, []string{"usd", "eur", "10"}, f.Args)

	f, err = ParseFlags([]string{"LATEST", "USD", "EUR"}, &out)
	require.NoError(t, err)
	assert.Equal(t, CommandLatest, f.Command)

	for _, args := range [][]string{
		{},
		{"latest"},
		{"convert", "USD", "EUR"},
		{"rates"},
		{"-unknown", "latest", "USD"},
	} {
		_, err := ParseFlags(args, &out)
		assert.Error(t, err, "%v", args)
	}
}

func TestParseHistoryArgs(t *testing.T) {
	var out bytes.Buffer

	h, err := ParseHistoryArgs([]string{"USD", "2025-06-02", "2025-06-06"}, &out)
	require.NoError(t, err)
	assert.Equal(t, HistoryArgs{Base: "USD", Start: "2025-06-02", End: "2025-06-06", Page: 1, Size: 10}, h)

	h, err = ParseHistoryArgs([]string{"-page", "3", "-size", "2", "USD", "2025-06-02", "2025-06-06"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Page)
	assert.Equal(t, 2, h.Size)

	_, err = ParseHistoryArgs([]string{"USD", "2025-06-02"}, &out)
	assert.Error(t, err)
}
