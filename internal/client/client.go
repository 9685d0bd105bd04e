package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-widget/internal/circuitbreaker"
	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observability"
)

// WeatherClient is the weather data provider consumed by the fetch orchestrator.
type WeatherClient interface {
	FetchByCity(ctx context.Context, name string) (models.WeatherSnapshot, error)
	FetchByCoordinates(ctx context.Context, coords models.Coordinates) (models.WeatherSnapshot, error)
}

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrNetwork          = errors.New("network error")
	ErrInvalidResponse  = errors.New("invalid response")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrCircuitOpen      = errors.New("circuit breaker open")
)

type OpenWeatherClient struct {
	apiKey         string
	apiURL         string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.CircuitBreaker
	limiter        *rate.Limiter
}

// NewOpenWeatherClient returns a client that makes exactly one upstream
// attempt per fetch.
func NewOpenWeatherClient(apiKey, apiURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	return NewOpenWeatherClientWithRetry(apiKey, apiURL, timeout, 1, 100*time.Millisecond, 2*time.Second)
}

func NewOpenWeatherClientWithRetry(apiKey, apiURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if retryAttempts <= 0 {
		retryAttempts = 1
	}

	return &OpenWeatherClient{
		apiKey:         apiKey,
		apiURL:         apiURL,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetCircuitBreaker routes every upstream call through cb. Nil disables it.
func (c *OpenWeatherClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// SetRateLimiter makes every upstream call wait for a token from l. Nil disables it.
func (c *OpenWeatherClient) SetRateLimiter(l *rate.Limiter) {
	c.limiter = l
}

type openWeatherResponse struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  int      `json:"humidity"`
		Pressure  int      `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
}

func (c *OpenWeatherClient) FetchByCity(ctx context.Context, name string) (models.WeatherSnapshot, error) {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(name))
	return c.fetch(ctx, params, name)
}

func (c *OpenWeatherClient) FetchByCoordinates(ctx context.Context, coords models.Coordinates) (models.WeatherSnapshot, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	return c.fetch(ctx, params, "Current Location")
}

func (c *OpenWeatherClient) fetch(ctx context.Context, params url.Values, fallbackName string) (models.WeatherSnapshot, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.WeatherAPIRetriesTotal.Inc()
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return models.WeatherSnapshot{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := c.guardedCall(ctx, params, fallbackName)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !c.isRetryable(err) {
			return models.WeatherSnapshot{}, err
		}
	}

	if c.retryAttempts == 1 {
		return models.WeatherSnapshot{}, lastErr
	}
	return models.WeatherSnapshot{}, fmt.Errorf("exhausted retries: %w", lastErr)
}

// guardedCall applies the rate limiter and circuit breaker around callAPI.
// Not-found responses do not count as breaker failures.
func (c *OpenWeatherClient) guardedCall(ctx context.Context, params url.Values, fallbackName string) (models.WeatherSnapshot, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.WeatherSnapshot{}, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	if c.breaker == nil {
		return c.callAPI(ctx, params, fallbackName)
	}

	var result models.WeatherSnapshot
	var notFound error
	err := c.breaker.Call(ctx, func() error {
		data, err := c.callAPI(ctx, params, fallbackName)
		if errors.Is(err, ErrLocationNotFound) {
			notFound = err
			return nil
		}
		result = data
		return err
	})
	if notFound != nil {
		return models.WeatherSnapshot{}, notFound
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return result, err
}

func (c *OpenWeatherClient) callAPI(ctx context.Context, params url.Values, fallbackName string) (models.WeatherSnapshot, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, params)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.WeatherSnapshot{}, fmt.Errorf("build request: %w", err)
	}

	if reqID := extractRequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(duration)

		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return models.WeatherSnapshot{}, fmt.Errorf("%w: request timeout: %w", ErrNetwork, err)
		}
		return models.WeatherSnapshot{}, fmt.Errorf("%w: http request failed: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(duration)

	if err := c.handleErrorResponse(resp); err != nil {
		return models.WeatherSnapshot{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: read response body: %w", ErrNetwork, err)
	}

	var apiResp openWeatherResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: parse response: %w", ErrInvalidResponse, err)
	}

	return mapResponse(apiResp, fallbackName)
}

func (c *OpenWeatherClient) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) || errors.Is(err, ErrNetwork) {
		return true
	}
	return false
}

func (c *OpenWeatherClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, params url.Values) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")
	baseURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *OpenWeatherClient) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP 401", ErrInvalidAPIKey)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrLocationNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

// mapResponse converts the provider payload into a snapshot. A payload missing
// temperature or condition is rejected so no partial snapshot escapes.
func mapResponse(apiResp openWeatherResponse, fallbackName string) (models.WeatherSnapshot, error) {
	if apiResp.Main.Temp == nil {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: missing main.temp", ErrInvalidResponse)
	}
	if len(apiResp.Weather) == 0 {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: missing weather conditions", ErrInvalidResponse)
	}

	feelsLike := *apiResp.Main.Temp
	if apiResp.Main.FeelsLike != nil {
		feelsLike = *apiResp.Main.FeelsLike
	}

	displayName := apiResp.Name
	if displayName == "" {
		displayName = fallbackName
	}

	observed := time.Now().UTC()
	if apiResp.Dt > 0 {
		observed = time.Unix(apiResp.Dt, 0).UTC()
	}

	return models.WeatherSnapshot{
		City:        displayName,
		Temperature: *apiResp.Main.Temp,
		FeelsLike:   feelsLike,
		Condition:   apiResp.Weather[0].Main,
		Description: apiResp.Weather[0].Description,
		Humidity:    apiResp.Main.Humidity,
		WindSpeed:   apiResp.Wind.Speed,
		Pressure:    apiResp.Main.Pressure,
		Icon:        apiResp.Weather[0].Icon,
		ObservedAt:  observed,
	}, nil
}

type requestIDKey struct{}

// WithRequestID attaches a request id that is forwarded as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func extractRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode == 404 {
		return "not_found"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
