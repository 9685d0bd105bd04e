package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observability"
	"github.com/kjstillabower/weather-widget/internal/validation"
)

// DefaultIPLookupURL is an ip-api.com compatible endpoint.
const DefaultIPLookupURL = "http://ip-api.com/json/?fields=status,message,lat,lon"

const ipBreakerName = "ip-geolocation"

// ipLookupResponse is the subset of the ip-api.com payload we read.
type ipLookupResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// IPGeolocator approximates the position from the public IP address. It is
// coarse, so HighAccuracy is accepted but cannot be honoured.
type IPGeolocator struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	last   models.Coordinates
	lastAt time.Time
}

// NewIPGeolocator creates a geolocator against url (DefaultIPLookupURL when
// empty). A nil client gets a plain http.Client; per-request deadlines come
// from Options.Timeout.
func NewIPGeolocator(url string, client *http.Client, logger *zap.Logger) *IPGeolocator {
	if url == "" {
		url = DefaultIPLookupURL
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        ipBreakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.RecordCircuitBreakerTransition(name, from.String(), to.String())
			logger.Warn("circuit breaker state change",
				zap.String("component", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &IPGeolocator{
		url:     url,
		client:  client,
		breaker: cb,
		logger:  logger,
		now:     time.Now,
	}
}

// CurrentPosition returns a cached fix younger than opts.MaximumAge, or
// performs a lookup.
func (g *IPGeolocator) CurrentPosition(ctx context.Context, opts Options) (models.Coordinates, error) {
	if c, ok := g.cached(opts.MaximumAge); ok {
		return c, nil
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.lookup(ctx)
	})
	if err != nil {
		return models.Coordinates{}, g.classify(ctx, err)
	}
	coords := result.(models.Coordinates)

	g.mu.Lock()
	g.last, g.lastAt = coords, g.now()
	g.mu.Unlock()
	return coords, nil
}

func (g *IPGeolocator) cached(maxAge time.Duration) (models.Coordinates, bool) {
	if maxAge <= 0 {
		return models.Coordinates{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastAt.IsZero() || g.now().Sub(g.lastAt) > maxAge {
		return models.Coordinates{}, false
	}
	return g.last, true
}

func (g *IPGeolocator) lookup(ctx context.Context) (models.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return models.Coordinates{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return models.Coordinates{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return models.Coordinates{}, &Error{Reason: ReasonPermissionDenied, Err: fmt.Errorf("lookup status %d", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return models.Coordinates{}, &Error{Reason: ReasonPositionUnavailable, Err: fmt.Errorf("lookup status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return models.Coordinates{}, err
	}
	var out ipLookupResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return models.Coordinates{}, &Error{Reason: ReasonUnknown, Err: fmt.Errorf("decode lookup response: %w", err)}
	}
	if out.Status != "" && out.Status != "success" {
		return models.Coordinates{}, &Error{Reason: ReasonPositionUnavailable, Err: fmt.Errorf("lookup failed: %s", out.Message)}
	}
	if out.Lat == nil || out.Lon == nil {
		return models.Coordinates{}, &Error{Reason: ReasonPositionUnavailable, Err: errors.New("lookup response missing lat/lon")}
	}
	coords := models.Coordinates{Latitude: *out.Lat, Longitude: *out.Lon}
	if err := validation.ValidateCoordinates(coords); err != nil {
		return models.Coordinates{}, &Error{Reason: ReasonPositionUnavailable, Err: err}
	}
	return coords, nil
}

func (g *IPGeolocator) classify(ctx context.Context, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Reason: ReasonPositionUnavailable, Err: err}
	}
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Reason: ReasonTimeout, Err: err}
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Reason: ReasonTimeout, Err: err}
	}
	return &Error{Reason: ReasonPositionUnavailable, Err: err}
}
