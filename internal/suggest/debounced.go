package suggest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/debounce"
	"github.com/kjstillabower/weather-widget/internal/observability"
)

// DefaultDelay is the typing pause before a lookup is made.
const DefaultDelay = 300 * time.Millisecond

// Debounced wraps a Provider so lookups happen only after typing pauses.
// Provider errors degrade to an empty list.
type Debounced struct {
	d      *debounce.Debouncer[string, []string]
	logger *zap.Logger
}

func NewDebounced(p Provider, delay time.Duration, logger *zap.Logger) *Debounced {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Debounced{logger: logger}
	s.d = debounce.New(func(ctx context.Context, query string) ([]string, error) {
		return s.lookup(ctx, p, query), nil
	}, delay)
	return s
}

func (s *Debounced) lookup(ctx context.Context, p Provider, query string) []string {
	if tooShort(query) {
		observability.SuggestionLookupsTotal.WithLabelValues("short").Inc()
		return []string{}
	}
	got, err := p.Suggest(ctx, query)
	switch {
	case err != nil:
		result := "error"
		if errors.Is(err, ErrProviderUnavailable) {
			result = "unavailable"
		}
		observability.SuggestionLookupsTotal.WithLabelValues(result).Inc()
		s.logger.Debug("suggestion lookup failed", zap.String("query", query), zap.Error(err))
		return []string{}
	case len(got) == 0:
		observability.SuggestionLookupsTotal.WithLabelValues("empty").Inc()
		return []string{}
	default:
		observability.SuggestionLookupsTotal.WithLabelValues("hit").Inc()
		if len(got) > MaxResults {
			got = got[:MaxResults]
		}
		return got
	}
}

// Lookup blocks until the debounce window closes. ok is false when a newer
// lookup superseded this one or ctx was cancelled; the caller shows nothing new.
func (s *Debounced) Lookup(ctx context.Context, query string) (suggestions []string, ok bool) {
	got, err := s.d.Call(ctx, query)
	if err != nil {
		return nil, false
	}
	return got, true
}

// LookupAsync delivers suggestions on another goroutine. deliver is not called
// for superseded lookups.
func (s *Debounced) LookupAsync(ctx context.Context, query string, deliver func([]string)) {
	s.d.Do(ctx, query, func(got []string, err error) {
		if err != nil {
			return
		}
		deliver(got)
	})
}

// Cancel drops any pending lookup.
func (s *Debounced) Cancel() {
	s.d.Cancel()
}
