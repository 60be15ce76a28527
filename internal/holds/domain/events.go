package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "CalendarHold"

// HoldCreated is emitted when a calendar interval is reserved.
type HoldCreated struct {
	sharedDomain.BaseEvent
	HoldID           uuid.UUID `json:"hold_id"`
	MeetingRequestID uuid.UUID `json:"meeting_request_id"`
	CalendarID       string    `json:"calendar_id"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// NewHoldCreated creates a HoldCreated event.
func NewHoldCreated(h *CalendarHold) *HoldCreated {
	return &HoldCreated{
		BaseEvent:        sharedDomain.NewBaseEvent(h.ID(), aggregateType, "scheduling.hold.created"),
		HoldID:           h.ID(),
		MeetingRequestID: h.MeetingRequestID(),
		CalendarID:       h.CalendarID(),
		Start:            h.Window().Start(),
		End:              h.Window().End(),
		ExpiresAt:        h.ExpiresAt(),
	}
}

// HoldConfirmedEvent is emitted when the recipient accepted the slot.
type HoldConfirmedEvent struct {
	sharedDomain.BaseEvent
	HoldID           uuid.UUID `json:"hold_id"`
	MeetingRequestID uuid.UUID `json:"meeting_request_id"`
}

// NewHoldConfirmed creates a HoldConfirmedEvent.
func NewHoldConfirmed(h *CalendarHold) *HoldConfirmedEvent {
	return &HoldConfirmedEvent{
		BaseEvent:        sharedDomain.NewBaseEvent(h.ID(), aggregateType, "scheduling.hold.confirmed"),
		HoldID:           h.ID(),
		MeetingRequestID: h.MeetingRequestID(),
	}
}

// HoldReleasedEvent is emitted when a hold is given up.
type HoldReleasedEvent struct {
	sharedDomain.BaseEvent
	HoldID           uuid.UUID `json:"hold_id"`
	MeetingRequestID uuid.UUID `json:"meeting_request_id"`
}

// NewHoldReleased creates a HoldReleasedEvent.
func NewHoldReleased(h *CalendarHold) *HoldReleasedEvent {
	return &HoldReleasedEvent{
		BaseEvent:        sharedDomain.NewBaseEvent(h.ID(), aggregateType, "scheduling.hold.released"),
		HoldID:           h.ID(),
		MeetingRequestID: h.MeetingRequestID(),
	}
}

// HoldExpiredEvent is emitted when a hold's TTL elapsed without a reply.
type HoldExpiredEvent struct {
	sharedDomain.BaseEvent
	HoldID           uuid.UUID `json:"hold_id"`
	MeetingRequestID uuid.UUID `json:"meeting_request_id"`
}

// NewHoldExpired creates a HoldExpiredEvent.
func NewHoldExpired(h *CalendarHold) *HoldExpiredEvent {
	return &HoldExpiredEvent{
		BaseEvent:        sharedDomain.NewBaseEvent(h.ID(), aggregateType, "scheduling.hold.expired"),
		HoldID:           h.ID(),
		MeetingRequestID: h.MeetingRequestID(),
	}
}
