// Package widget composes the weather widget: search, current location,
// suggestions, recent searches and favorites around one fetch orchestrator.
package widget

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/location"
	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/prefs"
	"github.com/kjstillabower/weather-widget/internal/service"
	"github.com/kjstillabower/weather-widget/internal/suggest"
	"github.com/kjstillabower/weather-widget/internal/validation"
)

// ErrClosed is returned by operations issued after Close.
var ErrClosed = errors.New("widget closed")

// Deps are the components the widget drives.
type Deps struct {
	Orchestrator *service.Orchestrator
	Location     *location.Provider
	Suggestions  *suggest.Debounced
	Recents      *prefs.RecentSearches
	Favorites    *prefs.Favorites
	Logger       *zap.Logger
}

// Options bound accepted city input.
type Options struct {
	CityMinLength int
	CityMaxLength int
}

// Outcome is the result of a current-location fetch: either a terminal fetch
// state or the location failure that prevented the fetch.
type Outcome struct {
	Fetch       models.FetchState
	LocationErr *location.Error
}

// View is everything a presentation layer needs to render the widget.
type View struct {
	Fetch                models.FetchState
	Location             location.State
	LocationErr          *location.Error
	UsingCurrentLocation bool
	City                 string
	Recents              []string
	Favorites            []string
	IsFavorite           bool
}

type Widget struct {
	orch      *service.Orchestrator
	loc       *location.Provider
	suggest   *suggest.Debounced
	recents   *prefs.RecentSearches
	favorites *prefs.Favorites
	opts      Options
	logger    *zap.Logger

	// submitMu orders target changes with their Submit calls, so a city
	// search and a resolved location cannot interleave between deciding and
	// submitting. Listeners must not call Search or UseCurrentLocation.
	submitMu sync.Mutex

	mu         sync.Mutex
	city       string
	useCurrent bool
	closed     bool
	wg         sync.WaitGroup
}

func New(d Deps, opts Options) *Widget {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Widget{
		orch:      d.Orchestrator,
		loc:       d.Location,
		suggest:   d.Suggestions,
		recents:   d.Recents,
		favorites: d.Favorites,
		opts:      opts,
		logger:    logger,
	}
}

// Start restores persisted lists and requests the location once. When the
// location resolves and no city has been searched, weather for the
// coordinates is fetched. The returned channel reports that outcome.
func (w *Widget) Start(ctx context.Context) <-chan Outcome {
	w.Restore(ctx)
	return w.locateAndFetch(ctx, false)
}

// Restore loads recent searches and favorites from storage.
func (w *Widget) Restore(ctx context.Context) {
	w.recents.Load(ctx)
	w.favorites.Load(ctx)
}

// Subscribe registers fn for every fetch state change.
func (w *Widget) Subscribe(fn func(models.FetchState)) (unsubscribe func()) {
	return w.orch.Subscribe(fn)
}

// Search validates input, leaves current-location mode, records the search
// and fetches weather for the city.
func (w *Widget) Search(ctx context.Context, input string) (<-chan models.FetchState, error) {
	city, err := validation.ValidateCity(input, w.opts.CityMinLength, w.opts.CityMaxLength)
	if err != nil {
		return nil, err
	}
	w.submitMu.Lock()
	defer w.submitMu.Unlock()
	if w.isClosed() {
		return nil, ErrClosed
	}
	w.mu.Lock()
	w.city = city
	w.useCurrent = false
	w.mu.Unlock()

	w.recents.Record(ctx, city)
	w.logger.Debug("search submitted", zap.String("city", city))
	return w.orch.Submit(ctx, models.ByCity(city))
}

// SelectFavorite searches for a saved city.
func (w *Widget) SelectFavorite(ctx context.Context, city string) (<-chan models.FetchState, error) {
	return w.Search(ctx, city)
}

// UseCurrentLocation enters current-location mode and clears the city. Known
// coordinates are fetched immediately; otherwise the location is requested
// again first.
func (w *Widget) UseCurrentLocation(ctx context.Context) <-chan Outcome {
	w.submitMu.Lock()
	if w.isClosed() {
		w.submitMu.Unlock()
		out := make(chan Outcome)
		close(out)
		return out
	}
	w.mu.Lock()
	w.useCurrent = true
	w.city = ""
	w.mu.Unlock()

	if st := w.loc.State(); st.Status == location.StatusResolved {
		out := make(chan Outcome, 1)
		ch, err := w.orch.Submit(ctx, models.ByCoordinates(st.Coords))
		w.submitMu.Unlock()
		if err != nil {
			close(out)
			return out
		}
		w.forward(ch, out)
		return out
	}
	w.submitMu.Unlock()
	return w.locateAndFetch(ctx, true)
}

// locateAndFetch requests the location and, if the widget still wants
// coordinates when it resolves, fetches weather for them.
func (w *Widget) locateAndFetch(ctx context.Context, requireCurrentMode bool) <-chan Outcome {
	out := make(chan Outcome, 1)
	req := w.loc.Request(ctx)

	started := w.background(func() {
		st, ok := <-req
		if !ok {
			close(out)
			return
		}
		if st.Status == location.StatusFailed {
			out <- Outcome{LocationErr: st.Err}
			close(out)
			return
		}

		ch, err := w.submitCoordinates(ctx, st.Coords, requireCurrentMode)
		if ch == nil && err == nil {
			close(out)
			return
		}
		if err != nil {
			w.logger.Warn("resolved coordinates rejected", zap.Error(err))
			close(out)
			return
		}
		fetch, ok := <-ch
		if ok {
			out <- Outcome{Fetch: fetch}
		}
		close(out)
	})
	if !started {
		close(out)
	}
	return out
}

// submitCoordinates fetches weather for resolved coordinates if the widget
// still wants them. It returns a nil channel and nil error when it does not.
func (w *Widget) submitCoordinates(ctx context.Context, coords models.Coordinates, requireCurrentMode bool) (<-chan models.FetchState, error) {
	w.submitMu.Lock()
	defer w.submitMu.Unlock()

	w.mu.Lock()
	wanted := !w.closed && w.city == "" && (w.useCurrent || !requireCurrentMode)
	w.mu.Unlock()
	if !wanted {
		return nil, nil
	}
	return w.orch.Submit(ctx, models.ByCoordinates(coords))
}

func (w *Widget) forward(ch <-chan models.FetchState, out chan<- Outcome) {
	started := w.background(func() {
		if fetch, ok := <-ch; ok {
			out <- Outcome{Fetch: fetch}
		}
		close(out)
	})
	if !started {
		close(out)
	}
}

// background runs fn on a tracked goroutine. After Close it runs nothing and
// returns false.
func (w *Widget) background(fn func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn()
	}()
	return true
}

// Refresh re-fetches the active target.
func (w *Widget) Refresh(ctx context.Context) (<-chan models.FetchState, error) {
	w.submitMu.Lock()
	defer w.submitMu.Unlock()
	if w.isClosed() {
		return nil, ErrClosed
	}
	return w.orch.Refresh(ctx)
}

func (w *Widget) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// LocationError returns the location failure, but only while the widget is in
// current-location mode.
func (w *Widget) LocationError() *location.Error {
	w.mu.Lock()
	useCurrent := w.useCurrent
	w.mu.Unlock()
	if !useCurrent {
		return nil
	}
	return w.loc.State().Err
}

// Suggest returns debounced suggestions for text. ok is false when a newer
// keystroke superseded this lookup.
func (w *Widget) Suggest(ctx context.Context, text string) ([]string, bool) {
	return w.suggest.Lookup(ctx, text)
}

func (w *Widget) Recents() []string { return w.recents.List() }

func (w *Widget) Favorites() []string { return w.favorites.List() }

func (w *Widget) AddFavorite(ctx context.Context, city string) bool {
	return w.favorites.Add(ctx, city)
}

func (w *Widget) RemoveFavorite(ctx context.Context, city string) bool {
	return w.favorites.Remove(ctx, city)
}

// ToggleFavorite flips city's favorite status and returns the new status.
func (w *Widget) ToggleFavorite(ctx context.Context, city string) bool {
	return w.favorites.Toggle(ctx, city)
}

// Snapshot returns the current view.
func (w *Widget) Snapshot() View {
	w.mu.Lock()
	v := View{
		City:                 w.city,
		UsingCurrentLocation: w.useCurrent,
	}
	w.mu.Unlock()

	v.Fetch = w.orch.State()
	v.Location = w.loc.State()
	if v.UsingCurrentLocation {
		v.LocationErr = v.Location.Err
	}
	v.Recents = w.recents.List()
	v.Favorites = w.favorites.List()
	if v.Fetch.Snapshot != nil {
		v.IsFavorite = w.favorites.Contains(v.Fetch.Snapshot.City)
	}
	return v
}

// Close drops pending suggestions and waits for background work to finish.
// Later searches, refreshes and location requests do nothing.
func (w *Widget) Close() {
	w.submitMu.Lock()
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.submitMu.Unlock()

	w.suggest.Cancel()
	w.wg.Wait()
	w.orch.Wait()
}
