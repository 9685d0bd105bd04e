// Package refresh periodically re-fetches the widget's active target.
package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/lifecycle"
	"github.com/kjstillabower/weather-widget/internal/models"
)

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 10 * time.Minute

// Target is what the refresher re-issues. widget.Widget satisfies it.
type Target interface {
	Refresh(ctx context.Context) (<-chan models.FetchState, error)
}

// Refresher re-issues the active target on a fixed interval.
type Refresher struct {
	scheduler *gocron.Scheduler
	target    Target
	interval  time.Duration
	onResult  func(models.FetchState)
	logger    *zap.Logger
}

// New creates a Refresher. onResult receives each refreshed terminal state
// and may be nil.
func New(target Target, interval time.Duration, onResult func(models.FetchState), logger *zap.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Refresher{
		scheduler: s,
		target:    target,
		interval:  interval,
		onResult:  onResult,
		logger:    logger,
	}
}

// Start schedules the job, first run one interval from now, and starts the
// scheduler. Jobs use ctx and stop issuing work once it is done.
func (r *Refresher) Start(ctx context.Context) error {
	_, err := r.scheduler.Every(r.interval).WaitForSchedule().Do(func() {
		r.tick(ctx)
	})
	if err != nil {
		return err
	}
	r.scheduler.StartAsync()
	r.logger.Info("refresh scheduled", zap.Duration("interval", r.interval))
	return nil
}

func (r *Refresher) tick(ctx context.Context) {
	if ctx.Err() != nil || lifecycle.IsShuttingDown() {
		return
	}
	ch, err := r.target.Refresh(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Debug("refresh skipped", zap.Error(err))
		}
		return
	}
	st, ok := <-ch
	if !ok {
		return
	}
	r.logger.Debug("refresh completed", zap.String("status", st.Status.String()))
	if r.onResult != nil {
		r.onResult(st)
	}
}

// Stop stops the scheduler and cancels any future runs.
func (r *Refresher) Stop() {
	r.scheduler.Stop()
}
