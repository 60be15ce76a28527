package domain

import (
	"errors"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrRequestEmptySender       = errors.New("meeting request sender cannot be empty")
	ErrRequestEmptySource       = errors.New("meeting request source message cannot be empty")
	ErrRequestInvalidType       = errors.New("invalid meeting type")
	ErrRequestInvalidUrgency    = errors.New("invalid urgency level")
	ErrRequestInvalidDuration   = errors.New("duration must be positive")
	ErrRequestInvalidConfidence = errors.New("detection confidence must be within [0,100]")
	ErrRequestTerminal          = errors.New("meeting request is in a terminal state")
	ErrRequestInvalidTransition = errors.New("invalid meeting request status transition")
)

// MeetingType describes the kind of meeting being requested.
type MeetingType string

const (
	MeetingTypeUrgent    MeetingType = "urgent"
	MeetingTypeRegular   MeetingType = "regular"
	MeetingTypeFlexible  MeetingType = "flexible"
	MeetingTypeRecurring MeetingType = "recurring"
)

// IsValid checks if the meeting type is supported.
func (t MeetingType) IsValid() bool {
	switch t {
	case MeetingTypeUrgent, MeetingTypeRegular, MeetingTypeFlexible, MeetingTypeRecurring:
		return true
	default:
		return false
	}
}

// UrgencyLevel describes how quickly the sender wants to meet.
type UrgencyLevel string

const (
	UrgencyHigh   UrgencyLevel = "high"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyLow    UrgencyLevel = "low"
)

// IsValid checks if the urgency level is supported.
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	default:
		return false
	}
}

// RequestStatus is the lifecycle state of a meeting request.
type RequestStatus string

const (
	StatusPending     RequestStatus = "pending"
	StatusNegotiating RequestStatus = "negotiating"
	StatusScheduled   RequestStatus = "scheduled"
	StatusDeclined    RequestStatus = "declined"
	StatusCancelled   RequestStatus = "cancelled"
	StatusExpired     RequestStatus = "expired"
)

// IsTerminal reports whether the status admits no further transitions.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case StatusScheduled, StatusDeclined, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// MeetingRequest represents a detected scheduling intent.
type MeetingRequest struct {
	sharedDomain.BaseAggregateRoot
	sourceMessageID     string
	sender              string
	subject             string
	meetingType         MeetingType
	durationMinutes     int
	preferredWindows    []sharedDomain.TimeWindow
	attendees           []string
	locationPreference  string
	urgency             UrgencyLevel
	detectionConfidence int
	status              RequestStatus
	statusReason        string
}

// NewMeetingRequest creates a pending meeting request.
func NewMeetingRequest(
	sourceMessageID string,
	sender string,
	subject string,
	meetingType MeetingType,
	durationMinutes int,
	preferredWindows []sharedDomain.TimeWindow,
	attendees []string,
	locationPreference string,
	urgency UrgencyLevel,
	detectionConfidence int,
) (*MeetingRequest, error) {
	if strings.TrimSpace(sourceMessageID) == "" {
		return nil, ErrRequestEmptySource
	}
	if strings.TrimSpace(sender) == "" {
		return nil, ErrRequestEmptySender
	}
	if !meetingType.IsValid() {
		return nil, ErrRequestInvalidType
	}
	if !urgency.IsValid() {
		return nil, ErrRequestInvalidUrgency
	}
	if durationMinutes <= 0 {
		return nil, ErrRequestInvalidDuration
	}
	if detectionConfidence < 0 || detectionConfidence > 100 {
		return nil, ErrRequestInvalidConfidence
	}

	request := &MeetingRequest{
		BaseAggregateRoot:   sharedDomain.NewBaseAggregateRoot(),
		sourceMessageID:     sourceMessageID,
		sender:              sender,
		subject:             subject,
		meetingType:         meetingType,
		durationMinutes:     durationMinutes,
		preferredWindows:    preferredWindows,
		attendees:           attendees,
		locationPreference:  locationPreference,
		urgency:             urgency,
		detectionConfidence: detectionConfidence,
		status:              StatusPending,
	}

	request.AddDomainEvent(NewRequestDetected(request))
	return request, nil
}

// Getters
func (r *MeetingRequest) SourceMessageID() string { return r.sourceMessageID }
func (r *MeetingRequest) Sender() string          { return r.sender }
func (r *MeetingRequest) Subject() string         { return r.subject }
func (r *MeetingRequest) MeetingType() MeetingType {
	return r.meetingType
}
func (r *MeetingRequest) DurationMinutes() int       { return r.durationMinutes }
func (r *MeetingRequest) LocationPreference() string { return r.locationPreference }
func (r *MeetingRequest) Urgency() UrgencyLevel      { return r.urgency }
func (r *MeetingRequest) DetectionConfidence() int   { return r.detectionConfidence }
func (r *MeetingRequest) Status() RequestStatus      { return r.status }
func (r *MeetingRequest) StatusReason() string       { return r.statusReason }

// PreferredWindows returns a copy of the preferred time windows in source order.
func (r *MeetingRequest) PreferredWindows() []sharedDomain.TimeWindow {
	windows := make([]sharedDomain.TimeWindow, len(r.preferredWindows))
	copy(windows, r.preferredWindows)
	return windows
}

// Attendees returns a copy of the attendee identities.
func (r *MeetingRequest) Attendees() []string {
	attendees := make([]string, len(r.attendees))
	copy(attendees, r.attendees)
	return attendees
}

// HasSpecificTimes reports whether the sender proposed concrete windows.
func (r *MeetingRequest) HasSpecificTimes() bool { return len(r.preferredWindows) > 0 }

// StartNegotiation moves the request into active negotiation.
func (r *MeetingRequest) StartNegotiation() error {
	if err := r.transition(StatusNegotiating, ""); err != nil {
		return err
	}
	r.AddDomainEvent(NewRequestNegotiating(r))
	return nil
}

// MarkScheduled records that a calendar event was created for this request.
func (r *MeetingRequest) MarkScheduled() error {
	if err := r.transition(StatusScheduled, ""); err != nil {
		return err
	}
	r.AddDomainEvent(NewRequestScheduled(r))
	return nil
}

// Decline records that the recipient declined the meeting.
func (r *MeetingRequest) Decline(reason string) error {
	if err := r.transition(StatusDeclined, reason); err != nil {
		return err
	}
	r.AddDomainEvent(NewRequestClosed(r))
	return nil
}

// Cancel closes the request without scheduling.
func (r *MeetingRequest) Cancel(reason string) error {
	if err := r.transition(StatusCancelled, reason); err != nil {
		return err
	}
	r.AddDomainEvent(NewRequestClosed(r))
	return nil
}

// Expire closes the request because negotiation timed out.
func (r *MeetingRequest) Expire(reason string) error {
	if err := r.transition(StatusExpired, reason); err != nil {
		return err
	}
	r.AddDomainEvent(NewRequestClosed(r))
	return nil
}

// allowedTransitions encodes the monotonic status machine. Terminal states
// have no outgoing edges.
var allowedTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:     {StatusNegotiating, StatusScheduled, StatusDeclined, StatusCancelled, StatusExpired},
	StatusNegotiating: {StatusScheduled, StatusDeclined, StatusCancelled, StatusExpired},
}

func (r *MeetingRequest) transition(to RequestStatus, reason string) error {
	if r.status.IsTerminal() {
		return ErrRequestTerminal
	}
	for _, allowed := range allowedTransitions[r.status] {
		if allowed == to {
			r.status = to
			r.statusReason = reason
			r.Touch()
			return nil
		}
	}
	return ErrRequestInvalidTransition
}

// RehydrateMeetingRequest recreates a meeting request from persisted state.
func RehydrateMeetingRequest(
	id uuid.UUID,
	sourceMessageID string,
	sender string,
	subject string,
	meetingType MeetingType,
	durationMinutes int,
	preferredWindows []sharedDomain.TimeWindow,
	attendees []string,
	locationPreference string,
	urgency UrgencyLevel,
	detectionConfidence int,
	status RequestStatus,
	statusReason string,
	createdAt time.Time,
	updatedAt time.Time,
) *MeetingRequest {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	baseAggregate := sharedDomain.RehydrateBaseAggregateRoot(baseEntity)

	return &MeetingRequest{
		BaseAggregateRoot:   baseAggregate,
		sourceMessageID:     sourceMessageID,
		sender:              sender,
		subject:             subject,
		meetingType:         meetingType,
		durationMinutes:     durationMinutes,
		preferredWindows:    preferredWindows,
		attendees:           attendees,
		locationPreference:  locationPreference,
		urgency:             urgency,
		detectionConfidence: detectionConfidence,
		status:              status,
		statusReason:        statusReason,
	}
}
