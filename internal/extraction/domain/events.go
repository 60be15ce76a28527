package domain

import (
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "MeetingRequest"

// RequestDetected is emitted when a scheduling intent is detected in an
// inbound message.
type RequestDetected struct {
	sharedDomain.BaseEvent
	RequestID       uuid.UUID `json:"request_id"`
	SourceMessageID string    `json:"source_message_id"`
	Sender          string    `json:"sender"`
	MeetingType     string    `json:"meeting_type"`
	DurationMinutes int       `json:"duration_minutes"`
	Confidence      int       `json:"confidence"`
}

// NewRequestDetected creates a RequestDetected event.
func NewRequestDetected(r *MeetingRequest) *RequestDetected {
	return &RequestDetected{
		BaseEvent:       sharedDomain.NewBaseEvent(r.ID(), aggregateType, "scheduling.request.detected"),
		RequestID:       r.ID(),
		SourceMessageID: r.SourceMessageID(),
		Sender:          r.Sender(),
		MeetingType:     string(r.MeetingType()),
		DurationMinutes: r.DurationMinutes(),
		Confidence:      r.DetectionConfidence(),
	}
}

// RequestNegotiating is emitted when negotiation with the recipient begins.
type RequestNegotiating struct {
	sharedDomain.BaseEvent
	RequestID uuid.UUID `json:"request_id"`
}

// NewRequestNegotiating creates a RequestNegotiating event.
func NewRequestNegotiating(r *MeetingRequest) *RequestNegotiating {
	return &RequestNegotiating{
		BaseEvent: sharedDomain.NewBaseEvent(r.ID(), aggregateType, "scheduling.request.negotiating"),
		RequestID: r.ID(),
	}
}

// RequestScheduled is emitted when a calendar event was created for the request.
type RequestScheduled struct {
	sharedDomain.BaseEvent
	RequestID uuid.UUID `json:"request_id"`
}

// NewRequestScheduled creates a RequestScheduled event.
func NewRequestScheduled(r *MeetingRequest) *RequestScheduled {
	return &RequestScheduled{
		BaseEvent: sharedDomain.NewBaseEvent(r.ID(), aggregateType, "scheduling.request.scheduled"),
		RequestID: r.ID(),
	}
}

// RequestClosed is emitted when a request reaches a terminal state without
// being scheduled.
type RequestClosed struct {
	sharedDomain.BaseEvent
	RequestID uuid.UUID `json:"request_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
}

// NewRequestClosed creates a RequestClosed event.
func NewRequestClosed(r *MeetingRequest) *RequestClosed {
	return &RequestClosed{
		BaseEvent: sharedDomain.NewBaseEvent(r.ID(), aggregateType, "scheduling.request.closed"),
		RequestID: r.ID(),
		Status:    string(r.Status()),
		Reason:    r.StatusReason(),
	}
}
