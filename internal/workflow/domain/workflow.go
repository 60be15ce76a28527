// Package domain models the scheduling workflow: the state machine that
// carries one meeting request from detection to a confirmed event or a
// terminal failure.
package domain

import (
	"errors"
	"time"

	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrWorkflowNotFound           = errors.New("scheduling workflow not found")
	ErrWorkflowTerminal           = errors.New("scheduling workflow is in a terminal state")
	ErrWorkflowInvalidTransition  = errors.New("invalid workflow state transition")
	ErrWorkflowInvalidType        = errors.New("invalid workflow type")
	ErrWorkflowUnknownParticipant = errors.New("participant does not belong to this workflow")
)

// WorkflowType determines how the workflow negotiates.
type WorkflowType string

const (
	// DirectSchedule proposes concrete slots and expects a simple pick.
	DirectSchedule WorkflowType = "direct_schedule"
	// NegotiateTime additionally supports counter-proposal rounds.
	NegotiateTime WorkflowType = "negotiate_time"
	// MultiRecipient requires every participant to accept the same slot.
	MultiRecipient WorkflowType = "multi_recipient"
)

// IsValid checks whether the workflow type is known.
func (t WorkflowType) IsValid() bool {
	switch t {
	case DirectSchedule, NegotiateTime, MultiRecipient:
		return true
	}
	return false
}

// WorkflowState is the current step of the state machine.
type WorkflowState string

const (
	StateInitiated     WorkflowState = "initiated"
	StateHoldsCreated  WorkflowState = "holds_created"
	StateResponseSent  WorkflowState = "response_sent"
	StateAwaitingReply WorkflowState = "awaiting_reply"
	StateConfirmed     WorkflowState = "confirmed"
	StateExpired       WorkflowState = "expired"
	StateFailed        WorkflowState = "failed"
	StateCancelled     WorkflowState = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s WorkflowState) IsTerminal() bool {
	switch s {
	case StateConfirmed, StateExpired, StateFailed, StateCancelled:
		return true
	}
	return false
}

var allowedTransitions = map[WorkflowState][]WorkflowState{
	StateInitiated:     {StateHoldsCreated},
	StateHoldsCreated:  {StateResponseSent},
	StateResponseSent:  {StateAwaitingReply},
	StateAwaitingReply: {StateConfirmed, StateExpired, StateHoldsCreated},
}

func canTransition(from, to WorkflowState) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// SchedulingWorkflow tracks orchestration progress for one meeting request.
// Exactly one non-terminal workflow may exist per request; the repository
// enforces that with a unique constraint.
type SchedulingWorkflow struct {
	sharedDomain.BaseAggregateRoot
	meetingRequestID    uuid.UUID
	workflowType        WorkflowType
	state               WorkflowState
	retryCount          int
	nextActionAt        *time.Time
	failureReason       string
	pendingParticipants []string
}

// NewSchedulingWorkflow creates a workflow in the initiated state. For
// multi-recipient workflows, participants lists everyone whose acceptance is
// still required.
func NewSchedulingWorkflow(meetingRequestID uuid.UUID, workflowType WorkflowType, participants []string) (*SchedulingWorkflow, error) {
	if !workflowType.IsValid() {
		return nil, ErrWorkflowInvalidType
	}

	pending := []string{}
	if workflowType == MultiRecipient {
		pending = append(pending, participants...)
	}

	w := &SchedulingWorkflow{
		BaseAggregateRoot:   sharedDomain.NewBaseAggregateRoot(),
		meetingRequestID:    meetingRequestID,
		workflowType:        workflowType,
		state:               StateInitiated,
		pendingParticipants: pending,
	}

	w.AddDomainEvent(NewWorkflowStarted(w))
	return w, nil
}

// Getters
func (w *SchedulingWorkflow) MeetingRequestID() uuid.UUID { return w.meetingRequestID }
func (w *SchedulingWorkflow) Type() WorkflowType          { return w.workflowType }
func (w *SchedulingWorkflow) State() WorkflowState        { return w.state }
func (w *SchedulingWorkflow) RetryCount() int             { return w.retryCount }
func (w *SchedulingWorkflow) FailureReason() string       { return w.failureReason }

// NextActionAt returns when the timeout dispatcher should revisit this
// workflow, or nil when no timer is armed.
func (w *SchedulingWorkflow) NextActionAt() *time.Time {
	if w.nextActionAt == nil {
		return nil
	}
	t := *w.nextActionAt
	return &t
}

// PendingParticipants returns who still has to accept.
func (w *SchedulingWorkflow) PendingParticipants() []string {
	out := make([]string, len(w.pendingParticipants))
	copy(out, w.pendingParticipants)
	return out
}

func (w *SchedulingWorkflow) transition(to WorkflowState) error {
	if w.state.IsTerminal() {
		return ErrWorkflowTerminal
	}
	if !canTransition(w.state, to) {
		return ErrWorkflowInvalidTransition
	}
	w.state = to
	w.Touch()
	return nil
}

// MarkHoldsCreated records that candidate holds were placed.
func (w *SchedulingWorkflow) MarkHoldsCreated() error {
	return w.transition(StateHoldsCreated)
}

// MarkResponseSent records a successful dispatch to the recipient.
func (w *SchedulingWorkflow) MarkResponseSent() error {
	return w.transition(StateResponseSent)
}

// AwaitReply arms the reply timeout. deadline is normally the earliest hold
// expiry, so the workflow times out no later than its reservations.
func (w *SchedulingWorkflow) AwaitReply(deadline time.Time) error {
	if err := w.transition(StateAwaitingReply); err != nil {
		return err
	}
	d := deadline.UTC()
	w.nextActionAt = &d
	return nil
}

// ReturnToNegotiation loops an awaiting workflow back to hold creation after
// a counter-proposal. Only negotiate_time workflows support the loop.
func (w *SchedulingWorkflow) ReturnToNegotiation() error {
	if w.workflowType != NegotiateTime {
		return ErrWorkflowInvalidTransition
	}
	if err := w.transition(StateHoldsCreated); err != nil {
		return err
	}
	// Back in the dispatch phase, the timer is re-armed on the next AwaitReply.
	w.nextActionAt = nil
	return nil
}

// AcceptParticipant records one participant's acceptance and reports whether
// everyone has now accepted.
func (w *SchedulingWorkflow) AcceptParticipant(participant string) (bool, error) {
	if w.state != StateAwaitingReply {
		return false, ErrWorkflowInvalidTransition
	}
	if w.workflowType != MultiRecipient {
		return true, nil
	}

	found := false
	remaining := w.pendingParticipants[:0]
	for _, p := range w.pendingParticipants {
		if p == participant {
			found = true
			continue
		}
		remaining = append(remaining, p)
	}
	if !found {
		return false, ErrWorkflowUnknownParticipant
	}
	w.pendingParticipants = remaining
	w.Touch()
	return len(w.pendingParticipants) == 0, nil
}

// Confirm marks the workflow resolved with an accepted slot.
func (w *SchedulingWorkflow) Confirm() error {
	if err := w.transition(StateConfirmed); err != nil {
		return err
	}
	w.nextActionAt = nil
	w.AddDomainEvent(NewWorkflowConfirmed(w))
	return nil
}

// Expire ends the workflow after the reply deadline passed.
func (w *SchedulingWorkflow) Expire(reason string) error {
	if w.state != StateAwaitingReply {
		return ErrWorkflowInvalidTransition
	}
	w.state = StateExpired
	w.failureReason = reason
	w.nextActionAt = nil
	w.Touch()
	w.AddDomainEvent(NewWorkflowExpired(w))
	return nil
}

// Fail ends the workflow after an unrecoverable error. Allowed from any
// non-terminal state; the orchestrator releases owned holds first.
func (w *SchedulingWorkflow) Fail(reason string) error {
	if w.state.IsTerminal() {
		return ErrWorkflowTerminal
	}
	w.state = StateFailed
	w.failureReason = reason
	w.nextActionAt = nil
	w.Touch()
	w.AddDomainEvent(NewWorkflowFailed(w))
	return nil
}

// Cancel ends the workflow at the user's request. Allowed from any
// non-terminal state.
func (w *SchedulingWorkflow) Cancel(reason string) error {
	if w.state.IsTerminal() {
		return ErrWorkflowTerminal
	}
	w.state = StateCancelled
	w.failureReason = reason
	w.nextActionAt = nil
	w.Touch()
	w.AddDomainEvent(NewWorkflowCancelled(w))
	return nil
}

// RecordRetry increments the retry counter after a transient failure.
func (w *SchedulingWorkflow) RecordRetry() {
	w.retryCount++
	w.Touch()
}

// CanRetry reports whether another attempt is allowed under the ceiling.
func (w *SchedulingWorkflow) CanRetry(maxRetries int) bool {
	return w.retryCount < maxRetries
}

// RehydrateSchedulingWorkflow recreates a workflow from persisted state.
func RehydrateSchedulingWorkflow(
	id uuid.UUID,
	meetingRequestID uuid.UUID,
	workflowType WorkflowType,
	state WorkflowState,
	retryCount int,
	nextActionAt *time.Time,
	failureReason string,
	pendingParticipants []string,
	createdAt time.Time,
	updatedAt time.Time,
) *SchedulingWorkflow {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	baseAggregate := sharedDomain.RehydrateBaseAggregateRoot(baseEntity)

	if pendingParticipants == nil {
		pendingParticipants = []string{}
	}

	return &SchedulingWorkflow{
		BaseAggregateRoot:   baseAggregate,
		meetingRequestID:    meetingRequestID,
		workflowType:        workflowType,
		state:               state,
		retryCount:          retryCount,
		nextActionAt:        nextActionAt,
		failureReason:       failureReason,
		pendingParticipants: pendingParticipants,
	}
}
