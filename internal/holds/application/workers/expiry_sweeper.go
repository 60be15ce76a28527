// Package workers contains background workers for the holds context.
package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultSweepInterval is the default interval between sweep cycles. It is
// deliberately shorter than the hold TTL so a hold never lingers long past
// its expiry.
const DefaultSweepInterval = 5 * time.Minute

// Sweeper expires pending holds past their TTL.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// ExpirySweeperConfig configures the sweeper worker.
type ExpirySweeperConfig struct {
	Interval time.Duration
}

// DefaultExpirySweeperConfig returns the default configuration.
func DefaultExpirySweeperConfig() ExpirySweeperConfig {
	return ExpirySweeperConfig{Interval: DefaultSweepInterval}
}

// ExpirySweeper periodically sweeps expired holds so abandoned reservations
// free their calendar intervals.
type ExpirySweeper struct {
	sweeper Sweeper
	config  ExpirySweeperConfig
	logger  *slog.Logger
	running atomic.Bool
	stopCh  chan struct{}
}

// NewExpirySweeper creates a new expiry sweeper worker.
func NewExpirySweeper(sweeper Sweeper, config ExpirySweeperConfig, logger *slog.Logger) *ExpirySweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSweepInterval
	}
	return &ExpirySweeper{
		sweeper: sweeper,
		config:  config,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Run starts the worker and blocks until context is cancelled or Stop() is called.
func (w *ExpirySweeper) Run(ctx context.Context) error {
	w.running.Store(true)
	w.logger.Info("hold expiry sweeper started", "interval", w.config.Interval)

	// Run immediately on start
	w.runSweepCycle(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.running.Store(false)
			w.logger.Info("hold expiry sweeper stopped (context cancelled)")
			return ctx.Err()
		case <-w.stopCh:
			w.running.Store(false)
			w.logger.Info("hold expiry sweeper stopped (stop signal)")
			return nil
		case <-ticker.C:
			w.runSweepCycle(ctx)
		}
	}
}

// Stop signals the worker to stop gracefully.
func (w *ExpirySweeper) Stop() {
	if w.running.Load() {
		close(w.stopCh)
	}
}

// IsRunning returns true if the worker is currently running.
func (w *ExpirySweeper) IsRunning() bool {
	return w.running.Load()
}

func (w *ExpirySweeper) runSweepCycle(ctx context.Context) {
	swept, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		w.logger.Error("hold sweep cycle failed", "error", err)
		return
	}
	if swept > 0 {
		w.logger.Debug("sweep cycle complete", "swept", swept)
	}
}
