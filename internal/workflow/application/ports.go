// Package application contains the orchestrator that drives a meeting
// request from detection to resolution.
package application

import (
	"context"
	"errors"
	"time"

	availabilityApp "github.com/felixgeelhaar/tempora/internal/availability/application"
	extractionDomain "github.com/felixgeelhaar/tempora/internal/extraction/domain"
	holdsDomain "github.com/felixgeelhaar/tempora/internal/holds/domain"
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrNoCandidates    = errors.New("no candidate slots available")
	ErrDispatchFailure = errors.New("response dispatch failed")
	ErrReplyIgnored    = errors.New("reply does not apply to this workflow")
)

// Receipt acknowledges a dispatched candidate proposal.
type Receipt struct {
	ID     string
	SentAt time.Time
}

// ResponseDispatcher delivers candidate slots to the recipient. Transports
// (email, chat) live behind this port.
type ResponseDispatcher interface {
	Send(ctx context.Context, request *extractionDomain.MeetingRequest, candidates []availabilityApp.CandidateSlot) (Receipt, error)
}

// SlotSuggester produces ranked candidate slots inside a search window.
type SlotSuggester interface {
	SuggestSlots(ctx context.Context, calendarID string, durationMinutes int, window sharedDomain.TimeWindow, prefs availabilityApp.Preferences) ([]availabilityApp.CandidateSlot, error)
}

// HoldService is the slice of the hold manager the orchestrator needs.
type HoldService interface {
	CreateHolds(ctx context.Context, meetingRequestID uuid.UUID, calendarID string, windows []sharedDomain.TimeWindow) ([]*holdsDomain.CalendarHold, error)
	ConfirmHold(ctx context.Context, holdID uuid.UUID) (*holdsDomain.CalendarHold, error)
	ReleaseForRequest(ctx context.Context, meetingRequestID uuid.UUID) (int, error)
	FindForRequest(ctx context.Context, meetingRequestID uuid.UUID) ([]*holdsDomain.CalendarHold, error)
}

// ReplySignal is the inbound recipient answer. Exactly one of HoldID,
// CounterProposal or Decline carries meaning.
type ReplySignal struct {
	MeetingRequestID uuid.UUID
	// Participant identifies who replied; required for multi-recipient
	// workflows, ignored otherwise.
	Participant string
	// HoldID selects an accepted candidate.
	HoldID uuid.UUID
	// CounterProposal carries free text with alternative times.
	CounterProposal string
	// Decline rejects the meeting outright.
	Decline bool
}
