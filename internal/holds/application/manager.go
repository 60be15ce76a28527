// Package application coordinates hold placement, confirmation and expiry.
package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/tempora/internal/holds/domain"
	sharedApplication "github.com/felixgeelhaar/tempora/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/felixgeelhaar/tempora/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/tempora/pkg/observability"
	"github.com/google/uuid"
)

// Manager places and maintains calendar holds. Every mutation runs in a unit
// of work so the aggregate change and its outbox messages commit together.
type Manager struct {
	holds      domain.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	ttl        time.Duration
	logger     *slog.Logger
	metrics    observability.Metrics
}

// Option configures the Manager.
type Option func(*Manager)

// WithTTL overrides the default hold TTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager creates a hold manager.
func NewManager(holds domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork, opts ...Option) *Manager {
	m := &Manager{
		holds:      holds,
		outboxRepo: outboxRepo,
		uow:        uow,
		ttl:        domain.DefaultTTL,
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateHold reserves a calendar interval for a meeting request. It returns
// domain.ErrHoldConflict when a pending or confirmed hold already covers any
// part of the interval.
func (m *Manager) CreateHold(ctx context.Context, meetingRequestID uuid.UUID, calendarID string, window sharedDomain.TimeWindow) (*domain.CalendarHold, error) {
	hold, err := domain.NewCalendarHold(meetingRequestID, calendarID, window, m.ttl)
	if err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, m.uow, func(txCtx context.Context) error {
		if err := m.holds.Create(txCtx, hold); err != nil {
			return err
		}
		return m.persistEvents(txCtx, hold)
	})
	if err != nil {
		if errors.Is(err, domain.ErrHoldConflict) {
			m.metrics.Counter("holds.conflicted", 1, observability.T("calendar", calendarID))
		}
		return nil, err
	}

	m.metrics.Counter("holds.created", 1, observability.T("calendar", calendarID))
	m.logger.Info("hold created",
		"hold_id", hold.ID(),
		"meeting_request_id", meetingRequestID,
		"calendar_id", calendarID,
		"start", window.Start(),
		"end", window.End(),
		"expires_at", hold.ExpiresAt())
	return hold, nil
}

// CreateHolds reserves one interval per window. Windows that conflict with
// existing holds are skipped rather than failing the batch; the caller gets
// whatever subset could be reserved.
func (m *Manager) CreateHolds(ctx context.Context, meetingRequestID uuid.UUID, calendarID string, windows []sharedDomain.TimeWindow) ([]*domain.CalendarHold, error) {
	holds := make([]*domain.CalendarHold, 0, len(windows))
	for _, window := range windows {
		hold, err := m.CreateHold(ctx, meetingRequestID, calendarID, window)
		if errors.Is(err, domain.ErrHoldConflict) {
			continue
		}
		if err != nil {
			return holds, err
		}
		holds = append(holds, hold)
	}
	return holds, nil
}

// ConfirmHold turns a pending hold into a confirmed reservation.
func (m *Manager) ConfirmHold(ctx context.Context, holdID uuid.UUID) (*domain.CalendarHold, error) {
	var hold *domain.CalendarHold

	err := sharedApplication.WithUnitOfWork(ctx, m.uow, func(txCtx context.Context) error {
		var err error
		hold, err = m.holds.FindByID(txCtx, holdID)
		if err != nil {
			return err
		}
		if err := hold.Confirm(time.Now().UTC()); err != nil {
			return err
		}
		if err := m.holds.Save(txCtx, hold); err != nil {
			return err
		}
		return m.persistEvents(txCtx, hold)
	})
	if err != nil {
		return nil, err
	}

	m.metrics.Counter("holds.confirmed", 1, observability.T("calendar", hold.CalendarID()))
	m.logger.Info("hold confirmed", "hold_id", holdID, "meeting_request_id", hold.MeetingRequestID())
	return hold, nil
}

// ReleaseHold gives up a pending hold. Releasing an already released hold is
// a no-op, matching the aggregate's idempotency.
func (m *Manager) ReleaseHold(ctx context.Context, holdID uuid.UUID) error {
	return sharedApplication.WithUnitOfWork(ctx, m.uow, func(txCtx context.Context) error {
		hold, err := m.holds.FindByID(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold.Status() == domain.HoldReleased {
			return nil
		}
		if err := hold.Release(); err != nil {
			return err
		}
		if err := m.holds.Save(txCtx, hold); err != nil {
			return err
		}
		if err := m.persistEvents(txCtx, hold); err != nil {
			return err
		}
		m.metrics.Counter("holds.released", 1, observability.T("calendar", hold.CalendarID()))
		return nil
	})
}

// ReleaseForRequest releases every pending hold owned by a meeting request.
// Confirmed and already terminal holds are left untouched. Used when a
// workflow ends so no reservation outlives its request.
func (m *Manager) ReleaseForRequest(ctx context.Context, meetingRequestID uuid.UUID) (int, error) {
	released := 0

	err := sharedApplication.WithUnitOfWork(ctx, m.uow, func(txCtx context.Context) error {
		holds, err := m.holds.FindByMeetingRequestID(txCtx, meetingRequestID)
		if err != nil {
			return err
		}
		for _, hold := range holds {
			if hold.Status() != domain.HoldPending {
				continue
			}
			if err := hold.Release(); err != nil {
				return err
			}
			if err := m.holds.Save(txCtx, hold); err != nil {
				return err
			}
			if err := m.persistEvents(txCtx, hold); err != nil {
				return err
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if released > 0 {
		m.metrics.Counter("holds.released", int64(released))
		m.logger.Info("holds released for request", "meeting_request_id", meetingRequestID, "count", released)
	}
	return released, nil
}

// SweepExpired expires every pending hold past its TTL in one statement and
// returns the count. The bulk update does not raise per-hold domain events;
// the sweep itself is logged and counted instead.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	swept, err := m.holds.ExpirePending(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		m.metrics.Counter("holds.expired", int64(swept))
		m.logger.Info("expired holds swept", "count", swept)
	}
	return swept, nil
}

// FindForRequest returns all holds owned by a meeting request.
func (m *Manager) FindForRequest(ctx context.Context, meetingRequestID uuid.UUID) ([]*domain.CalendarHold, error) {
	return m.holds.FindByMeetingRequestID(ctx, meetingRequestID)
}

func (m *Manager) persistEvents(ctx context.Context, hold *domain.CalendarHold) error {
	events := hold.DomainEvents()
	if len(events) == 0 {
		return nil
	}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(hold.MeetingRequestID(), hold.CalendarID()))

	msgs := make([]*outbox.Message, 0, len(events))
	for _, event := range events {
		msg, err := outbox.NewMessage(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := m.outboxRepo.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	hold.ClearDomainEvents()
	return nil
}
