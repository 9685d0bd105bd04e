package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Call while the circuit is open, or while a
// half-open probe is already running.
var ErrOpen = errors.New("circuit breaker open")

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// State is the circuit breaker state (Closed, Open, HalfOpen).
type State int

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker parameters. Zero values take the defaults
// 5 failures, 2 probe successes and a 30s open period.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	Component        string
	OnStateChange    func(from, to State)
}

// CircuitBreaker guards weather provider calls. Consecutive failures open it;
// once Timeout has passed, calls are admitted one at a time as half-open
// probes until SuccessThreshold of them succeed.
//
// Calls that end with context.Canceled are neutral: a fetch superseded by a
// newer search says nothing about the provider's health.
type CircuitBreaker struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

// New creates a closed CircuitBreaker.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Call runs fn if the circuit admits it and records the outcome.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	probe, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(probe, err)
	return err
}

// admit decides whether a call may run. probe is true for half-open calls.
func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	var changed func()
	defer func() {
		cb.mu.Unlock()
		if changed != nil {
			changed()
		}
	}()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Timeout {
			return false, ErrOpen
		}
		changed = cb.transitionLocked(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.probing {
			return false, ErrOpen
		}
		cb.probing = true
		return true, nil
	default:
		return false, nil
	}
}

func (cb *CircuitBreaker) record(probe bool, err error) {
	cb.mu.Lock()
	var changed func()
	defer func() {
		cb.mu.Unlock()
		if changed != nil {
			changed()
		}
	}()

	if probe {
		cb.probing = false
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	if err != nil {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			changed = cb.transitionLocked(StateOpen)
		}
		return
	}

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			changed = cb.transitionLocked(StateClosed)
		}
	}
}

// transitionLocked moves to next and returns the hook to run once the lock
// is released, or nil.
func (cb *CircuitBreaker) transitionLocked(next State) func() {
	from := cb.state
	cb.state = next
	cb.failures = 0
	cb.successes = 0
	if next == StateOpen {
		cb.openedAt = cb.now()
	}
	if cb.cfg.OnStateChange == nil || from == next {
		return nil
	}
	hook := cb.cfg.OnStateChange
	return func() { hook(from, next) }
}

// Component returns the label the breaker was configured with.
func (cb *CircuitBreaker) Component() string {
	return cb.cfg.Component
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
