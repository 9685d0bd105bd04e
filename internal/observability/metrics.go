package observability

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

var (
	registry *prometheus.Registry

	// OpenWeatherMap API call rate. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// External API latency per request. Watch for: p95 > 2s (upstream degradation), p99 > 5s (timeout risk).
	WeatherAPIDuration *prometheus.HistogramVec

	// Retry attempts for weather API. Watch for: high retries = unstable upstream.
	WeatherAPIRetriesTotal prometheus.Counter

	// Fetch outcomes as seen by the orchestrator (success, not_found, failed).
	FetchesTotal *prometheus.CounterVec

	// Time from target submission to a terminal state.
	FetchDuration *prometheus.HistogramVec

	// Results dropped because a newer target was issued first.
	StaleResultsDiscardedTotal prometheus.Counter

	// Suggestion lookups that reached the provider (after debounce).
	SuggestionLookupsTotal *prometheus.CounterVec

	// Geolocation requests by outcome (resolved or failure reason).
	LocationRequestsTotal *prometheus.CounterVec

	// Persistence failures swallowed by the stores.
	StorageErrorsTotal *prometheus.CounterVec

	// Circuit breaker state transitions, labelled by component and from/to state.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
	)

	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of weather provider API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Weather provider API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WeatherAPIRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherApiRetriesTotal",
			Help: "Total number of retry attempts for weather API calls",
		},
	)
	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchesTotal",
			Help: "Weather fetches applied to visible state, by outcome",
		},
		[]string{"target", "outcome"},
	)
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetchDurationSeconds",
			Help:    "Time spent in Loading before a result was applied",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"target"},
	)
	StaleResultsDiscardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "staleResultsDiscardedTotal",
			Help: "Fetch results discarded because a newer target superseded them",
		},
	)
	SuggestionLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestionLookupsTotal",
			Help: "Suggestion provider lookups after debounce, by result",
		},
		[]string{"result"},
	)
	LocationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locationRequestsTotal",
			Help: "Geolocation requests by outcome",
		},
		[]string{"outcome"},
	)
	StorageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storageErrorsTotal",
			Help: "Key-value storage failures, by operation and key",
		},
		[]string{"operation", "key"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)

	registry.MustRegister(
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIRetriesTotal,
		FetchesTotal, FetchDuration, StaleResultsDiscardedTotal,
		SuggestionLookupsTotal, LocationRequestsTotal, StorageErrorsTotal,
		CircuitBreakerTransitionsTotal,
	)
}

// RecordCircuitBreakerTransition counts a breaker moving between states.
func RecordCircuitBreakerTransition(component, from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
}

// WriteMetrics writes every registered metric family in the Prometheus text
// exposition format. The widget has no server, so the CLI dumps metrics on exit.
func WriteMetrics(w io.Writer) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
