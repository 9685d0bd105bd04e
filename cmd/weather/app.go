package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-widget/internal/circuitbreaker"
	"github.com/kjstillabower/weather-widget/internal/client"
	"github.com/kjstillabower/weather-widget/internal/config"
	"github.com/kjstillabower/weather-widget/internal/location"
	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observability"
	"github.com/kjstillabower/weather-widget/internal/prefs"
	"github.com/kjstillabower/weather-widget/internal/service"
	"github.com/kjstillabower/weather-widget/internal/storage"
	"github.com/kjstillabower/weather-widget/internal/suggest"
	"github.com/kjstillabower/weather-widget/internal/widget"
)

// app is the wired widget plus the resources that must be released on exit.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	widget *widget.Widget
	closer io.Closer
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	weatherClient, err := newWeatherClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("weather client: %w", err)
	}

	store, closer, err := storage.Open(storage.Options{
		Backend:               cfg.StorageBackend,
		Path:                  cfg.StoragePath,
		MemcachedAddrs:        cfg.MemcachedAddrs,
		MemcachedTimeout:      cfg.MemcachedTimeout,
		MemcachedMaxIdleConns: cfg.MemcachedMaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	logger.Debug("storage backend", zap.String("backend", cfg.StorageBackend), zap.String("path", cfg.StoragePath))

	locOpts := location.DefaultOptions()
	locOpts.Timeout = cfg.GeolocationTimeout

	w := widget.New(widget.Deps{
		Orchestrator: service.NewOrchestrator(weatherClient, fetchTimeout(cfg), logger),
		Location:     location.NewProvider(newGeolocator(cfg, logger), locOpts, logger),
		Suggestions:  suggest.NewDebounced(suggest.NewCatalogProvider(nil), cfg.SuggestDebounce, logger),
		Recents:      prefs.NewRecentSearches(store, cfg.RecentCapacity, logger),
		Favorites:    prefs.NewFavorites(store, logger),
		Logger:       logger,
	}, widget.Options{
		CityMinLength: cfg.CityMinLength,
		CityMaxLength: cfg.CityMaxLength,
	})

	return &app{cfg: cfg, logger: logger, widget: w, closer: closer}, nil
}

func newWeatherClient(cfg *config.Config, logger *zap.Logger) (client.WeatherClient, error) {
	if cfg.Provider != config.ProviderOpenWeather {
		logger.Debug("using mock weather provider", zap.Duration("delay", cfg.MockDelay))
		return client.NewMockClient(cfg.MockDelay, cfg.MockFabricateUnknown), nil
	}

	c, err := client.NewOpenWeatherClientWithRetry(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIURL,
		cfg.WeatherAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		return nil, err
	}
	c.SetCircuitBreaker(circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		SuccessThreshold: cfg.BreakerSuccessThreshold,
		Timeout:          cfg.BreakerOpenTimeout,
		Component:        "weather_api",
		OnStateChange: func(from, to circuitbreaker.State) {
			observability.RecordCircuitBreakerTransition("weather_api", from.String(), to.String())
			logger.Warn("circuit breaker state change",
				zap.String("component", "weather_api"),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}))
	if cfg.RateLimitRPS > 0 {
		c.SetRateLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))
	}
	return c, nil
}

func newGeolocator(cfg *config.Config, logger *zap.Logger) location.Geolocator {
	switch cfg.GeolocationMode {
	case config.GeolocationIP:
		return location.NewIPGeolocator(cfg.GeolocationURL, nil, logger)
	case config.GeolocationStatic:
		return location.StaticGeolocator{Coords: models.Coordinates{
			Latitude:  cfg.StaticLatitude,
			Longitude: cfg.StaticLongitude,
		}}
	default:
		return nil
	}
}

// fetchTimeout bounds how long a fetch may stay Loading, retries included.
func fetchTimeout(cfg *config.Config) time.Duration {
	if cfg.Provider != config.ProviderOpenWeather {
		return cfg.WeatherAPITimeout
	}
	attempts := time.Duration(cfg.RetryAttempts)
	if attempts < 1 {
		attempts = 1
	}
	return cfg.WeatherAPITimeout*attempts + cfg.RetryMaxDelay*(attempts-1)
}

// close releases the widget and storage and flushes telemetry.
func (a *app) close(metricsOut io.Writer) {
	a.widget.Close()
	if err := a.closer.Close(); err != nil {
		a.logger.Error("storage close", zap.Error(err))
	}
	if err := observability.FlushTelemetry(context.Background(), a.logger, metricsOut); err != nil {
		a.logger.Debug("telemetry flush", zap.Error(err))
	}
}

// cardOptions reflects the widget's current display flags.
func (a *app) cardOptions() cardOptions {
	v := a.widget.Snapshot()
	return cardOptions{
		CurrentLocation: v.UsingCurrentLocation,
		Favorite:        v.IsFavorite,
		Now:             time.Now(),
	}
}
