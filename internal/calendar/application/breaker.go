package application

import (
	"context"
	"log/slog"
	"time"

	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker around a calendar backend.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns sane defaults for calendar traffic.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      2,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerBackend wraps a CalendarBackend with a circuit breaker. An open
// circuit surfaces as ErrBackendUnavailable, which callers already treat as
// transient.
type BreakerBackend struct {
	inner        CalendarBackend
	busyBreaker  *gobreaker.CircuitBreaker[[]BusyInterval]
	eventBreaker *gobreaker.CircuitBreaker[CreatedEvent]
}

// NewBreakerBackend wraps the backend.
func NewBreakerBackend(inner CalendarBackend, cfg BreakerConfig, logger *slog.Logger) *BreakerBackend {
	if logger == nil {
		logger = slog.Default()
	}
	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Info("circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}
	}

	return &BreakerBackend{
		inner:        inner,
		busyBreaker:  gobreaker.NewCircuitBreaker[[]BusyInterval](settings("calendar.list_busy")),
		eventBreaker: gobreaker.NewCircuitBreaker[CreatedEvent](settings("calendar.create_event")),
	}
}

// ListBusy delegates through the breaker.
func (b *BreakerBackend) ListBusy(ctx context.Context, calendarID string, window sharedDomain.TimeWindow) ([]BusyInterval, error) {
	intervals, err := b.busyBreaker.Execute(func() ([]BusyInterval, error) {
		return b.inner.ListBusy(ctx, calendarID, window)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, ErrBackendUnavailable
	}
	return intervals, err
}

// CreateEvent delegates through the breaker.
func (b *BreakerBackend) CreateEvent(ctx context.Context, calendarID string, draft EventDraft) (CreatedEvent, error) {
	event, err := b.eventBreaker.Execute(func() (CreatedEvent, error) {
		return b.inner.CreateEvent(ctx, calendarID, draft)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return CreatedEvent{}, ErrBackendUnavailable
	}
	return event, err
}
