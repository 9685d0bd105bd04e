package debounce

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned by Call when a newer call replaced this one before
// its result could be delivered. Callers should drop it silently.
var ErrSuperseded = errors.New("debounce: call superseded")

// Func is the asynchronous operation being debounced.
type Func[A, T any] func(ctx context.Context, args A) (T, error)

// Debouncer coalesces rapid calls into a single trailing call. Each call gets
// an id from a monotonically increasing counter; only the call whose id is
// still the latest when fn returns has its result delivered.
type Debouncer[A, T any] struct {
	fn    Func[A, T]
	delay time.Duration

	mu      sync.Mutex
	latest  uint64
	pending *pendingCall
}

// pendingCall is a call waiting for its timer.
type pendingCall struct {
	timer *time.Timer
	fire  chan struct{}
	drop  chan struct{}
}

// New wraps fn with the given delay. A delay <= 0 disables debouncing.
func New[A, T any](fn Func[A, T], delay time.Duration) *Debouncer[A, T] {
	return &Debouncer[A, T]{fn: fn, delay: delay}
}

// Delay returns the debounce window.
func (d *Debouncer[A, T]) Delay() time.Duration {
	return d.delay
}

// Call schedules fn(args) after the debounce window and blocks until the
// result is available. If another Call arrives first, this one returns
// ErrSuperseded without running fn. If fn already started when the newer call
// arrived, its result is discarded the same way.
func (d *Debouncer[A, T]) Call(ctx context.Context, args A) (T, error) {
	var zero T
	if d.delay <= 0 {
		return d.fn(ctx, args)
	}

	d.mu.Lock()
	d.latest++
	id := d.latest
	d.supersedeLocked()
	p := &pendingCall{
		fire: make(chan struct{}),
		drop: make(chan struct{}),
	}
	p.timer = time.AfterFunc(d.delay, func() { close(p.fire) })
	d.pending = p
	d.mu.Unlock()

	select {
	case <-p.drop:
		return zero, ErrSuperseded
	case <-ctx.Done():
		d.mu.Lock()
		if d.pending == p {
			p.timer.Stop()
			d.pending = nil
		}
		d.mu.Unlock()
		return zero, ctx.Err()
	case <-p.fire:
	}

	d.mu.Lock()
	if d.pending == p {
		d.pending = nil
	}
	d.mu.Unlock()

	result, err := d.fn(ctx, args)

	d.mu.Lock()
	stale := id != d.latest
	d.mu.Unlock()
	if stale {
		return zero, ErrSuperseded
	}
	return result, err
}

// Do is the callback form of Call. deliver runs on its own goroutine and is
// never invoked for a superseded call.
func (d *Debouncer[A, T]) Do(ctx context.Context, args A, deliver func(T, error)) {
	go func() {
		result, err := d.Call(ctx, args)
		if errors.Is(err, ErrSuperseded) {
			return
		}
		deliver(result, err)
	}()
}

// Cancel drops the pending call, if any, and invalidates any call already
// running so its result is never delivered.
func (d *Debouncer[A, T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest++
	d.supersedeLocked()
}

// supersedeLocked stops the pending timer and releases its waiter.
func (d *Debouncer[A, T]) supersedeLocked() {
	if d.pending == nil {
		return
	}
	d.pending.timer.Stop()
	close(d.pending.drop)
	d.pending = nil
}
