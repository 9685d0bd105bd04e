package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/config"
	"github.com/kjstillabower/weather-widget/internal/observability"
)

type appKey struct{}

// errSilent exits non-zero without printing; the command already reported
// the failure.
var errSilent = errors.New("")

var (
	dumpMetrics bool
	logLevel    string

	// active is released by main after the command returns, whatever its result.
	active *app
)

var rootCmd = &cobra.Command{
	Use:   "weather",
	Short: "Weather widget - current conditions for a city or your location",
	Long: `weather looks up current conditions by city name or by your current
location, with debounced city suggestions, recent searches and favorites.

Configuration is read from config/{ENV_NAME}.yaml (default dev), .env and
the environment.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dumpMetrics, "metrics", false, "print metrics in Prometheus text format on exit")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR); overrides LOG_LEVEL")
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if active != nil {
		var metricsOut io.Writer
		if dumpMetrics {
			metricsOut = os.Stderr
		}
		active.close(metricsOut)
	}
	if err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logger := observability.NewLogger(level, os.Stderr)

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	logger.Debug("widget ready",
		zap.String("provider", cfg.Provider),
		zap.String("geolocation", cfg.GeolocationMode),
	)
	active = a
	cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
	return nil
}

func appFrom(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(appKey{}).(*app)
	if !ok || a == nil {
		return nil, errors.New("widget not initialised")
	}
	return a, nil
}
