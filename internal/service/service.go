package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/client"
	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observability"
	"github.com/kjstillabower/weather-widget/internal/validation"
)

// ErrNoTarget is returned by Refresh when nothing has been submitted.
var ErrNoTarget = errors.New("no active target")

// Orchestrator turns query targets into FetchStates. Each target change issues
// exactly one provider call; results are applied in issue order, so a slow
// response for a superseded target never overwrites newer state.
type Orchestrator struct {
	client       client.WeatherClient
	fetchTimeout time.Duration
	logger       *zap.Logger

	notifyMu  sync.Mutex
	mu        sync.Mutex
	seq       uint64
	cancel    context.CancelFunc
	state     models.FetchState
	listeners map[int]func(models.FetchState)
	nextID    int
	inflight  sync.WaitGroup
}

// NewOrchestrator creates an Idle orchestrator. fetchTimeout bounds each
// provider call (0 leaves it to the client).
func NewOrchestrator(c client.WeatherClient, fetchTimeout time.Duration, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		client:       c,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		listeners:    make(map[int]func(models.FetchState)),
	}
}

// State returns the current FetchState.
func (o *Orchestrator) State() models.FetchState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe registers fn for every state change, delivered in order. fn must
// not block or call Submit. The returned func unregisters it.
func (o *Orchestrator) Subscribe(fn func(models.FetchState)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// Submit makes target the active one. A zero target moves to Idle without any
// network activity. Otherwise the state becomes Loading and a fetch starts,
// cancelling the previous one. The returned channel receives this target's
// terminal state, or is closed without a value if a later Submit or Clear
// supersedes it. Invalid targets are rejected with an input error and leave
// the state untouched.
func (o *Orchestrator) Submit(ctx context.Context, target models.QueryTarget) (<-chan models.FetchState, error) {
	if target.IsZero() {
		o.Clear()
		done := make(chan models.FetchState, 1)
		done <- models.FetchState{Status: models.StatusIdle}
		close(done)
		return done, nil
	}
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.seq++
	seq := o.seq
	if o.cancel != nil {
		o.cancel()
	}
	var fetchCtx context.Context
	var cancel context.CancelFunc
	if o.fetchTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, o.fetchTimeout)
	} else {
		fetchCtx, cancel = context.WithCancel(ctx)
	}
	o.cancel = cancel
	o.inflight.Add(1)
	o.mu.Unlock()

	requestID := uuid.NewString()
	fetchCtx = client.WithRequestID(fetchCtx, requestID)
	logger := o.logger.With(
		zap.String("request_id", requestID),
		zap.String("target", target.String()),
		zap.Uint64("seq", seq),
	)

	o.apply(seq, models.FetchState{Status: models.StatusLoading, Target: target})
	logger.Debug("fetch started")

	done := make(chan models.FetchState, 1)
	go func() {
		defer o.inflight.Done()
		defer cancel()
		defer close(done)

		start := time.Now()
		snap, err := o.fetch(fetchCtx, target)
		kind := kindLabel(target)
		observability.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

		next := models.FetchState{Status: models.StatusSuccess, Target: target}
		outcome := "success"
		if err != nil {
			next = models.FetchState{
				Status:  models.StatusFailed,
				Target:  target,
				Message: client.UserMessage(err),
				Err:     err,
			}
			outcome = "failed"
			if client.IsNotFound(err) {
				outcome = "not_found"
			}
		} else {
			next.Snapshot = &snap
		}

		if !o.apply(seq, next) {
			observability.StaleResultsDiscardedTotal.Inc()
			logger.Debug("discarding stale fetch result", zap.String("outcome", outcome))
			return
		}
		observability.FetchesTotal.WithLabelValues(kind, outcome).Inc()
		if err != nil {
			logger.Warn("fetch failed",
				zap.String("category", string(client.CategorizeError(err))),
				zap.Error(err),
			)
		} else {
			logger.Info("weather fetched",
				zap.String("city", snap.City),
				zap.Duration("duration", time.Since(start)),
			)
		}
		done <- next
	}()
	return done, nil
}

// Refresh re-issues the active target.
func (o *Orchestrator) Refresh(ctx context.Context) (<-chan models.FetchState, error) {
	target := o.State().Target
	if target.IsZero() {
		return nil, ErrNoTarget
	}
	return o.Submit(ctx, target)
}

// Clear cancels any fetch in flight and returns to Idle.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	o.seq++
	seq := o.seq
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.mu.Unlock()
	o.apply(seq, models.FetchState{Status: models.StatusIdle})
}

// Wait blocks until every started fetch goroutine has returned.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

func (o *Orchestrator) fetch(ctx context.Context, target models.QueryTarget) (models.WeatherSnapshot, error) {
	if name, ok := target.City(); ok {
		return o.client.FetchByCity(ctx, name)
	}
	coords, _ := target.Coordinates()
	return o.client.FetchByCoordinates(ctx, coords)
}

// apply stores st if seq is still current and notifies listeners.
func (o *Orchestrator) apply(seq uint64, st models.FetchState) bool {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	if seq != o.seq {
		o.mu.Unlock()
		return false
	}
	if st.Terminal() || st.Status == models.StatusIdle {
		o.cancel = nil
	}
	o.state = st
	fns := make([]func(models.FetchState), 0, len(o.listeners))
	for _, fn := range o.listeners {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
	return true
}

func validateTarget(t models.QueryTarget) error {
	if name, ok := t.City(); ok {
		if _, err := validation.ValidateCity(name, 1, 0); err != nil {
			return err
		}
		return nil
	}
	coords, _ := t.Coordinates()
	return validation.ValidateCoordinates(coords)
}

func kindLabel(t models.QueryTarget) string {
	if t.Kind() == models.TargetCoordinates {
		return "coordinates"
	}
	return "city"
}
