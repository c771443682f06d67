package setup

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/fxgate/config"
)

// DefaultPath where the wizard saves the generated config.
const DefaultPath = "fxgate.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// Answers raw wizard input, validated field by field while typing.
type Answers struct {
	ProviderName   string
	BaseURL        string
	Timeout        string
	LogLevel       string
	LatestTTL      string
	ConvertTTL     string
	HistoricalTTL  string
	MaxRetries     string
	InitialBackoff string
	Threshold      string
	Cooldown       string
	Metrics        bool
}

// DefaultAnswers pre-fills the wizard.
func DefaultAnswers() Answers {
	return Answers{
		ProviderName:   config.DefaultProviderName,
		BaseURL:        config.DefaultBaseURL,
		Timeout:        config.DefaultTimeout.String(),
		LogLevel:       "info",
		LatestTTL:      "5m",
		ConvertTTL:     "5m",
		HistoricalTTL:  "24h",
		MaxRetries:     "3",
		InitialBackoff: "2s",
		Threshold:      "5",
		Cooldown:       "1m",
	}
}

// document YAML layout of config.Config with durations kept as strings.
type document struct {
	LogLevel        string             `yaml:"log_level"`
	DefaultProvider string             `yaml:"default_provider"`
	Providers       []providerDocument `yaml:"providers"`
	Cache           cacheDocument      `yaml:"cache"`
	Resilience      resilienceDocument `yaml:"resilience"`
	Metrics         metricsDocument    `yaml:"metrics"`
}

type providerDocument struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type cacheDocument struct {
	LatestTTL     string `yaml:"latest_ttl"`
	ConvertTTL    string `yaml:"convert_ttl"`
	HistoricalTTL string `yaml:"historical_ttl"`
}

type resilienceDocument struct {
	MaxRetries        int     `yaml:"max_retries"`
	InitialBackoff    string  `yaml:"initial_backoff"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	FailureThreshold  int     `yaml:"failure_threshold"`
	Cooldown          string  `yaml:"cooldown"`
}

type metricsDocument struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	a := DefaultAnswers()
	var confirm bool

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FXGATE CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point fxgate at a rate provider.\n"))

	// provider
	fmt.Println(stepStyle.Render("STEP 1: PROVIDER"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Provider name").
				Description("Used to select the provider with -provider").
				Value(&a.ProviderName).
				Validate(validateName),
			huh.NewInput().
				Title("API base URL").
				Description("Frankfurter compatible API root").
				Value(&a.BaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Request timeout").
				Description("Per attempt (e.g. 10s)").
				Value(&a.Timeout).
				Validate(validateDuration),
		),
	).Run()
	if err != nil {
		return err
	}

	// caching
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FXGATE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: CACHE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Latest rates TTL").
				Value(&a.LatestTTL).
				Validate(validateDuration),
			huh.NewInput().
				Title("Converted rate TTL").
				Value(&a.ConvertTTL).
				Validate(validateDuration),
			huh.NewInput().
				Title("Historical rates TTL").
				Description("Published history does not change").
				Value(&a.HistoricalTTL).
				Validate(validateDuration),
		),
	).Run()
	if err != nil {
		return err
	}

	// resilience
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FXGATE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: RESILIENCE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Max retries").
				Description("Retries after the first attempt").
				Value(&a.MaxRetries).
				Validate(validateNonNegativeInt),
			huh.NewInput().
				Title("Initial backoff").
				Description("Doubles on every retry").
				Value(&a.InitialBackoff).
				Validate(validateDuration),
			huh.NewInput().
				Title("Breaker failure threshold").
				Description("Consecutive failures that open the breaker").
				Value(&a.Threshold).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Breaker cooldown").
				Value(&a.Cooldown).
				Validate(validateDuration),
		),
	).Run()
	if err != nil {
		return err
	}

	// logging and metrics
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FXGATE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: OBSERVABILITY"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&a.LogLevel),
			huh.NewConfirm().
				Title("Print Prometheus metrics after each command?").
				Value(&a.Metrics),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FXGATE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary(a)))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := WriteConfig(path, a); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	return nil
}

// WriteConfig renders a as YAML and saves it to path after checking that it
// loads back as a valid config.
func WriteConfig(path string, a Answers) error {
	doc, err := newDocument(a)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	return nil
}

func newDocument(a Answers) (document, error) {
	for _, check := range []struct {
		value string
		valid func(string) error
		field string
	}{
		{a.ProviderName, validateName, "provider name"},
		{a.BaseURL, validateURL, "base url"},
		{a.Timeout, validateDuration, "timeout"},
		{a.LatestTTL, validateDuration, "latest ttl"},
		{a.ConvertTTL, validateDuration, "convert ttl"},
		{a.HistoricalTTL, validateDuration, "historical ttl"},
		{a.MaxRetries, validateNonNegativeInt, "max retries"},
		{a.InitialBackoff, validateDuration, "initial backoff"},
		{a.Threshold, validatePositiveInt, "failure threshold"},
		{a.Cooldown, validateDuration, "cooldown"},
	} {
		if err := check.valid(check.value); err != nil {
			return document{}, fmt.Errorf("invalid %s %q: %w", check.field, check.value, err)
		}
	}

	retries, _ := strconv.Atoi(strings.TrimSpace(a.MaxRetries))
	threshold, _ := strconv.Atoi(strings.TrimSpace(a.Threshold))
	name := strings.TrimSpace(a.ProviderName)

	return document{
		LogLevel:        a.LogLevel,
		DefaultProvider: name,
		Providers: []providerDocument{{
			Name:    name,
			Kind:    config.KindFrankfurter,
			BaseURL: strings.TrimSpace(a.BaseURL),
			Timeout: strings.TrimSpace(a.Timeout),
		}},
		Cache: cacheDocument{
			LatestTTL:     strings.TrimSpace(a.LatestTTL),
			ConvertTTL:    strings.TrimSpace(a.ConvertTTL),
			HistoricalTTL: strings.TrimSpace(a.HistoricalTTL),
		},
		Resilience: resilienceDocument{
			MaxRetries:        retries,
			InitialBackoff:    strings.TrimSpace(a.InitialBackoff),
			BackoffMultiplier: 2,
			FailureThreshold:  threshold,
			Cooldown:          strings.TrimSpace(a.Cooldown),
		},
		Metrics: metricsDocument{
			Enabled:   a.Metrics,
			Namespace: "fxgate",
		},
	}, nil
}

func summary(a Answers) string {
	return fmt.Sprintf(
		"Provider: %s\nURL: %s\nTimeout: %s\nCache TTLs: %s / %s / %s\nRetries: %s from %s\nBreaker: %s failures, %s cooldown\nLog level: %s\nMetrics: %t\n",
		a.ProviderName, a.BaseURL, a.Timeout,
		a.LatestTTL, a.ConvertTTL, a.HistoricalTTL,
		a.MaxRetries, a.InitialBackoff,
		a.Threshold, a.Cooldown,
		a.LogLevel, a.Metrics,
	)
}

func validateName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.ContainsAny(s, " \t") {
		return fmt.Errorf("name must be a single word")
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a duration (e.g. 30s, 5m)")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateNonNegativeInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validatePositiveInt(s string) error {
	if err := validateNonNegativeInt(s); err != nil {
		return err
	}
	if n, _ := strconv.Atoi(strings.TrimSpace(s)); n == 0 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}
