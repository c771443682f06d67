package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

const (
	// KindFrankfurter Frankfurter compatible rate API.
	KindFrankfurter = "frankfurter"

	DefaultProviderName = "frankfurter"
	DefaultBaseURL      = "https://api.frankfurter.dev/v1/"
	DefaultTimeout      = 10 * time.Second
)

type Config struct {
	LogLevel        string     `yaml:"log_level" env:"FXGATE_LOG_LEVEL" env-default:"info"`
	DefaultProvider string     `yaml:"default_provider" env:"FXGATE_DEFAULT_PROVIDER" env-default:"frankfurter"`
	Providers       []Provider `yaml:"providers"`
	Cache           Cache      `yaml:"cache"`
	Resilience      Resilience `yaml:"resilience"`
	Metrics         Metrics    `yaml:"metrics"`
}

// Provider one upstream rate API. Providers are resolved by Name.
type Provider struct {
	Name    string        `yaml:"name"`
	Kind    string        `yaml:"kind"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Cache struct {
	LatestTTL     time.Duration `yaml:"latest_ttl" env:"FXGATE_CACHE_LATEST_TTL" env-default:"5m"`
	ConvertTTL    time.Duration `yaml:"convert_ttl" env:"FXGATE_CACHE_CONVERT_TTL" env-default:"5m"`
	HistoricalTTL time.Duration `yaml:"historical_ttl" env:"FXGATE_CACHE_HISTORICAL_TTL" env-default:"24h"`
}

type Resilience struct {
	MaxRetries        int           `yaml:"max_retries" env:"FXGATE_MAX_RETRIES" env-default:"3"`
	InitialBackoff    time.Duration `yaml:"initial_backoff" env:"FXGATE_INITIAL_BACKOFF" env-default:"2s"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" env:"FXGATE_BACKOFF_MULTIPLIER" env-default:"2"`
	FailureThreshold  int           `yaml:"failure_threshold" env:"FXGATE_FAILURE_THRESHOLD" env-default:"5"`
	Cooldown          time.Duration `yaml:"cooldown" env:"FXGATE_BREAKER_COOLDOWN" env-default:"1m"`
}

type Metrics struct {
	Enabled   bool   `yaml:"enabled" env:"FXGATE_METRICS_ENABLED"`
	Namespace string `yaml:"namespace" env:"FXGATE_METRICS_NAMESPACE" env-default:"fxgate"`
}

// Load reads the YAML file at path with FXGATE_* environment overrides, or the
// environment alone when path is empty. Missing values take their defaults.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config file %s", path)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, errors.Wrap(err, "failed to read config from environment")
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	cfg := Config{
		LogLevel:        "info",
		DefaultProvider: DefaultProviderName,
		Cache: Cache{
			LatestTTL:     5 * time.Minute,
			ConvertTTL:    5 * time.Minute,
			HistoricalTTL: 24 * time.Hour,
		},
		Resilience: Resilience{
			MaxRetries:        3,
			InitialBackoff:    2 * time.Second,
			BackoffMultiplier: 2,
			FailureThreshold:  5,
			Cooldown:          time.Minute,
		},
		Metrics: Metrics{Namespace: "fxgate"},
	}
	cfg.applyDefaults()

	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Providers) == 0 {
		c.Providers = []Provider{{Name: DefaultProviderName}}
	}

	for i := range c.Providers {
		p := &c.Providers[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Kind == "" {
			p.Kind = KindFrankfurter
		}
		if p.BaseURL == "" {
			p.BaseURL = DefaultBaseURL
		}
		if p.Timeout == 0 {
			p.Timeout = DefaultTimeout
		}
	}

	if c.DefaultProvider == "" {
		c.DefaultProvider = c.Providers[0].Name
	}
}

// Validate checks every section and reports the first offending param.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("incorrect 'log_level' param in yaml config: %s, error: %w", c.LogLevel, err)
	}

	seen := make(map[string]struct{}, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("incorrect 'providers[%d].name' param in yaml config: name is required", i)
		}
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("incorrect 'providers[%d].name' param in yaml config: duplicate provider %q", i, p.Name)
		}
		seen[key] = struct{}{}

		if !strings.EqualFold(p.Kind, KindFrankfurter) {
			return fmt.Errorf("incorrect 'providers[%d].kind' param in yaml config: unsupported kind %q", i, p.Kind)
		}
		if p.Timeout < 0 {
			return fmt.Errorf("incorrect 'providers[%d].timeout' param in yaml config: must be positive, got %s", i, p.Timeout)
		}
	}

	if _, ok := seen[strings.ToLower(c.DefaultProvider)]; !ok {
		return fmt.Errorf("incorrect 'default_provider' param in yaml config: %q is not among configured providers", c.DefaultProvider)
	}

	for name, ttl := range map[string]time.Duration{
		"cache.latest_ttl":     c.Cache.LatestTTL,
		"cache.convert_ttl":    c.Cache.ConvertTTL,
		"cache.historical_ttl": c.Cache.HistoricalTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("incorrect '%s' param in yaml config: must be positive, got %s", name, ttl)
		}
	}

	r := c.Resilience
	if r.MaxRetries < 0 {
		return fmt.Errorf("incorrect 'resilience.max_retries' param in yaml config: must not be negative, got %d", r.MaxRetries)
	}
	if r.InitialBackoff <= 0 {
		return fmt.Errorf("incorrect 'resilience.initial_backoff' param in yaml config: must be positive, got %s", r.InitialBackoff)
	}
	if r.BackoffMultiplier < 1 {
		return fmt.Errorf("incorrect 'resilience.backoff_multiplier' param in yaml config: must be at least 1, got %v", r.BackoffMultiplier)
	}
	if r.FailureThreshold < 1 {
		return fmt.Errorf("incorrect 'resilience.failure_threshold' param in yaml config: must be at least 1, got %d", r.FailureThreshold)
	}
	if r.Cooldown <= 0 {
		return fmt.Errorf("incorrect 'resilience.cooldown' param in yaml config: must be positive, got %s", r.Cooldown)
	}

	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Namespace) == "" {
		return fmt.Errorf("incorrect 'metrics.namespace' param in yaml config: required when metrics are enabled")
	}

	return nil
}
