package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

var shuttingDown atomic.Bool

// SetShuttingDown sets the shutdown flag. Scheduled refreshes are skipped
// while true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true once the process has started exiting.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// WithSignals returns a context cancelled on SIGINT or SIGTERM, or when stop
// is called. The shutdown flag is raised as soon as the context ends.
func WithSignals(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	ctx, stop = signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		SetShuttingDown(true)
	}()
	return ctx, stop
}
