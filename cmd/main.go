// Command fxgate queries currency exchange rates through a cached, retried and
// circuit-broken rate provider client.
//
// Usage:
//
//	fxgate [-config fxgate.yaml] [-provider name] latest USD EUR
//	fxgate convert USD EUR 100
//	fxgate history -page 1 -size 10 USD 2025-06-02 2025-06-13
//	fxgate setup
//
// Without -config the configuration comes from FXGATE_* environment
// variables, optionally loaded from a .env file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vadiminshakov/fxgate/config"
	"github.com/vadiminshakov/fxgate/internal"
	"github.com/vadiminshakov/fxgate/internal/correlation"
	"github.com/vadiminshakov/fxgate/internal/domain"
	"github.com/vadiminshakov/fxgate/internal/metrics"
	"github.com/vadiminshakov/fxgate/internal/setup"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitBadRequest  = 2
	exitUnavailable = 3
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	stop()
	os.Exit(exitCode(err))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags, err := config.ParseFlags(args, stderr)
	if err != nil {
		return err
	}

	if flags.Command == config.CommandSetup {
		path := flags.ConfigPath
		if path == "" {
			path = setup.DefaultPath
		}
		return setup.RunTUI(path)
	}

	conf, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.LogLevel != "" {
		conf.LogLevel = flags.LogLevel
	}

	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	var m *metrics.ProviderMetrics
	if conf.Metrics.Enabled {
		m = metrics.NewProviderMetrics(reg, conf.Metrics.Namespace)
	}

	registry, err := internal.NewRegistryFromConfig(conf, logger, m)
	if err != nil {
		return err
	}

	svc, err := registry.Get(flags.Provider)
	if err != nil {
		return err
	}

	ctx, correlationID := correlation.Ensure(correlation.WithID(ctx, flags.CorrelationID))
	logger.Debug("running command",
		zap.String("command", flags.Command),
		zap.Strings("args", flags.Args),
		zap.String("provider", svc.Name()),
		zap.String("correlation_id", correlationID))

	switch flags.Command {
	case config.CommandLatest:
		err = runLatest(ctx, svc, flags.Args, stdout)
	case config.CommandConvert:
		err = runConvert(ctx, svc, flags.Args, stdout)
	case config.CommandHistory:
		err = runHistory(ctx, svc, flags.Args, stdout, stderr)
	}

	if conf.Metrics.Enabled {
		if werr := metrics.WriteText(stderr, reg); werr != nil {
			logger.Warn("failed to write metrics", zap.Error(werr))
		}
	}

	return err
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// exitCode maps error kinds the way an HTTP front end would map them onto
// client and server errors.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrUnsupportedCurrency),
		errors.Is(err, domain.ErrProviderNotFound):
		return exitBadRequest
	case errors.Is(err, domain.ErrProviderUnavailable):
		return exitUnavailable
	default:
		return exitFailure
	}
}
