package location

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observability"
)

// Status is the acquisition state.
type Status int

const (
	StatusNotRequested Status = iota
	StatusRequesting
	StatusResolved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRequesting:
		return "requesting"
	case StatusResolved:
		return "resolved"
	case StatusFailed:
		return "failed"
	default:
		return "not_requested"
	}
}

// State is a snapshot of the provider. Coords is set only when Resolved and
// Err only when Failed.
type State struct {
	Status Status
	Coords models.Coordinates
	Err    *Error
}

// Provider runs acquisitions against a Geolocator. It never retries on its
// own; each Request starts a new attempt and supersedes any attempt in flight.
type Provider struct {
	geo    Geolocator
	opts   Options
	logger *zap.Logger

	notifyMu  sync.Mutex
	mu        sync.Mutex
	seq       uint64
	cancel    context.CancelFunc
	state     State
	listeners map[int]func(State)
	nextID    int
}

// NewProvider creates a provider in NotRequested. A nil geo makes every
// request fail with ErrUnsupported.
func NewProvider(geo Geolocator, opts Options, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		geo:       geo,
		opts:      opts,
		logger:    logger,
		listeners: make(map[int]func(State)),
	}
}

// State returns the current snapshot.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe registers fn for every state change. Calls are serialized in
// state order; fn must not block or call Request. The returned func
// unregisters it.
func (p *Provider) Subscribe(fn func(State)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Request enters Requesting and starts an acquisition. The returned channel
// receives the terminal state of this request, or is closed without a value
// when a later request supersedes it.
func (p *Provider) Request(ctx context.Context) <-chan State {
	done := make(chan State, 1)

	p.mu.Lock()
	p.seq++
	seq := p.seq
	if p.cancel != nil {
		p.cancel()
	}
	timeout := p.opts.Timeout
	var reqCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	p.cancel = cancel
	p.mu.Unlock()

	p.set(seq, State{Status: StatusRequesting})

	go func() {
		defer cancel()
		coords, err := p.acquire(reqCtx)

		next := State{Status: StatusResolved, Coords: coords}
		outcome := "resolved"
		if err != nil {
			le := Normalize(err)
			next = State{Status: StatusFailed, Err: le}
			outcome = le.Reason.String()
		}

		if !p.set(seq, next) {
			observability.LocationRequestsTotal.WithLabelValues("superseded").Inc()
			p.logger.Debug("discarding superseded location result", zap.Uint64("seq", seq))
			close(done)
			return
		}
		observability.LocationRequestsTotal.WithLabelValues(outcome).Inc()
		if err != nil {
			p.logger.Warn("location request failed",
				zap.String("reason", outcome),
				zap.Error(err),
			)
		} else {
			p.logger.Debug("location resolved", zap.String("coords", coords.String()))
		}
		done <- next
		close(done)
	}()
	return done
}

func (p *Provider) acquire(ctx context.Context) (models.Coordinates, error) {
	if p.geo == nil {
		return models.Coordinates{}, ErrUnsupported
	}
	return p.geo.CurrentPosition(ctx, p.opts)
}

// set applies st if seq is still the latest request and notifies listeners.
func (p *Provider) set(seq uint64, st State) bool {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if seq != p.seq {
		p.mu.Unlock()
		return false
	}
	if st.Status != StatusRequesting {
		p.cancel = nil
	}
	p.state = st
	fns := make([]func(State), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
	return true
}
