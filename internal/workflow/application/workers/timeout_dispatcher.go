// Package workers contains background workers for the workflow context.
package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultCheckInterval is the default interval between timeout checks.
const DefaultCheckInterval = time.Minute

// DefaultBatchSize bounds how many workflows one cycle expires.
const DefaultBatchSize = 50

// Expirer times out awaiting workflows whose reply deadline has passed.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// TimeoutDispatcherConfig configures the timeout dispatcher.
type TimeoutDispatcherConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultTimeoutDispatcherConfig returns the default configuration.
func DefaultTimeoutDispatcherConfig() TimeoutDispatcherConfig {
	return TimeoutDispatcherConfig{
		Interval:  DefaultCheckInterval,
		BatchSize: DefaultBatchSize,
	}
}

// TimeoutDispatcher drives nextActionAt deadlines with a ticker instead of
// per-workflow goroutines, so thousands of awaiting workflows cost nothing
// while they wait.
type TimeoutDispatcher struct {
	expirer Expirer
	config  TimeoutDispatcherConfig
	logger  *slog.Logger
	running atomic.Bool
	stopCh  chan struct{}
}

// NewTimeoutDispatcher creates a new timeout dispatcher worker.
func NewTimeoutDispatcher(expirer Expirer, config TimeoutDispatcherConfig, logger *slog.Logger) *TimeoutDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultCheckInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	return &TimeoutDispatcher{
		expirer: expirer,
		config:  config,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Run starts the worker and blocks until context is cancelled or Stop() is called.
func (w *TimeoutDispatcher) Run(ctx context.Context) error {
	w.running.Store(true)
	w.logger.Info("workflow timeout dispatcher started", "interval", w.config.Interval)

	w.runCycle(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.running.Store(false)
			w.logger.Info("workflow timeout dispatcher stopped (context cancelled)")
			return ctx.Err()
		case <-w.stopCh:
			w.running.Store(false)
			w.logger.Info("workflow timeout dispatcher stopped (stop signal)")
			return nil
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

// Stop signals the worker to stop gracefully.
func (w *TimeoutDispatcher) Stop() {
	if w.running.Load() {
		close(w.stopCh)
	}
}

// IsRunning returns true if the worker is currently running.
func (w *TimeoutDispatcher) IsRunning() bool {
	return w.running.Load()
}

func (w *TimeoutDispatcher) runCycle(ctx context.Context) {
	expired, err := w.expirer.ExpireDue(ctx, time.Now().UTC(), w.config.BatchSize)
	if err != nil {
		w.logger.Error("timeout cycle failed", "error", err)
		return
	}
	if expired > 0 {
		w.logger.Debug("timeout cycle complete", "expired", expired)
	}
}
