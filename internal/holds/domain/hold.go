package domain

import (
	"errors"
	"time"

	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrHoldConflict   = errors.New("overlapping hold exists for calendar")
	ErrHoldNotFound   = errors.New("calendar hold not found")
	ErrHoldNotPending = errors.New("calendar hold is not pending")
	ErrHoldExpired    = errors.New("calendar hold has expired")
	ErrHoldInvalidTTL = errors.New("hold TTL must be positive")
	ErrHoldNoCalendar = errors.New("hold requires a calendar id")
)

// DefaultTTL is how long a pending hold blocks the calendar without a reply.
const DefaultTTL = 30 * time.Minute

// HoldStatus is the lifecycle state of a hold.
type HoldStatus string

const (
	HoldPending   HoldStatus = "pending"
	HoldConfirmed HoldStatus = "confirmed"
	HoldExpired   HoldStatus = "expired"
	HoldReleased  HoldStatus = "released"
)

// IsTerminal reports whether the status admits no further transitions.
func (s HoldStatus) IsTerminal() bool { return s != HoldPending }

// CalendarHold is a temporary reservation of a calendar interval. At most
// one pending or confirmed hold may cover any instant on a calendar; the
// repository enforces that invariant atomically at insert.
type CalendarHold struct {
	sharedDomain.BaseAggregateRoot
	meetingRequestID uuid.UUID
	calendarID       string
	window           sharedDomain.TimeWindow
	status           HoldStatus
	expiresAt        time.Time
}

// NewCalendarHold creates a pending hold expiring after ttl.
func NewCalendarHold(meetingRequestID uuid.UUID, calendarID string, window sharedDomain.TimeWindow, ttl time.Duration) (*CalendarHold, error) {
	if calendarID == "" {
		return nil, ErrHoldNoCalendar
	}
	if ttl <= 0 {
		return nil, ErrHoldInvalidTTL
	}

	hold := &CalendarHold{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		meetingRequestID:  meetingRequestID,
		calendarID:        calendarID,
		window:            window,
		status:            HoldPending,
		expiresAt:         time.Now().UTC().Add(ttl),
	}

	hold.AddDomainEvent(NewHoldCreated(hold))
	return hold, nil
}

// Getters
func (h *CalendarHold) MeetingRequestID() uuid.UUID       { return h.meetingRequestID }
func (h *CalendarHold) CalendarID() string                { return h.calendarID }
func (h *CalendarHold) Window() sharedDomain.TimeWindow   { return h.window }
func (h *CalendarHold) Status() HoldStatus                { return h.status }
func (h *CalendarHold) ExpiresAt() time.Time              { return h.expiresAt }

// IsExpired reports whether the TTL has elapsed.
func (h *CalendarHold) IsExpired(now time.Time) bool {
	return now.After(h.expiresAt)
}

// Confirm transitions pending to confirmed. A hold past its TTL cannot be
// confirmed even if the sweeper has not visited it yet.
func (h *CalendarHold) Confirm(now time.Time) error {
	if h.status != HoldPending {
		return ErrHoldNotPending
	}
	if h.IsExpired(now) {
		return ErrHoldExpired
	}
	h.status = HoldConfirmed
	h.Touch()
	h.AddDomainEvent(NewHoldConfirmed(h))
	return nil
}

// Release transitions pending to released. Releasing an already released
// hold is a no-op.
func (h *CalendarHold) Release() error {
	if h.status == HoldReleased {
		return nil
	}
	if h.status != HoldPending {
		return ErrHoldNotPending
	}
	h.status = HoldReleased
	h.Touch()
	h.AddDomainEvent(NewHoldReleased(h))
	return nil
}

// MarkExpired transitions pending to expired.
func (h *CalendarHold) MarkExpired() error {
	if h.status != HoldPending {
		return ErrHoldNotPending
	}
	h.status = HoldExpired
	h.Touch()
	h.AddDomainEvent(NewHoldExpired(h))
	return nil
}

// RehydrateCalendarHold recreates a hold from persisted state.
func RehydrateCalendarHold(
	id uuid.UUID,
	meetingRequestID uuid.UUID,
	calendarID string,
	window sharedDomain.TimeWindow,
	status HoldStatus,
	expiresAt time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *CalendarHold {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	baseAggregate := sharedDomain.RehydrateBaseAggregateRoot(baseEntity)

	return &CalendarHold{
		BaseAggregateRoot: baseAggregate,
		meetingRequestID:  meetingRequestID,
		calendarID:        calendarID,
		window:            window,
		status:            status,
		expiresAt:         expiresAt,
	}
}
