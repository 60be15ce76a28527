package domain

import (
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "SchedulingWorkflow"

// WorkflowStarted is emitted when orchestration begins for a request.
type WorkflowStarted struct {
	sharedDomain.BaseEvent
	WorkflowID       uuid.UUID    `json:"workflow_id"`
	MeetingRequestID uuid.UUID    `json:"meeting_request_id"`
	WorkflowType     WorkflowType `json:"workflow_type"`
}

// NewWorkflowStarted creates a WorkflowStarted event.
func NewWorkflowStarted(w *SchedulingWorkflow) *WorkflowStarted {
	return &WorkflowStarted{
		BaseEvent:        sharedDomain.NewBaseEvent(w.ID(), aggregateType, "scheduling.workflow.started"),
		WorkflowID:       w.ID(),
		MeetingRequestID: w.MeetingRequestID(),
		WorkflowType:     w.Type(),
	}
}

// WorkflowConfirmed is emitted when a slot was accepted and booked.
type WorkflowConfirmed struct {
	sharedDomain.BaseEvent
	WorkflowID       uuid.UUID `json:"workflow_id"`
	MeetingRequestID uuid.UUID `json:"meeting_request_id"`
}

// NewWorkflowConfirmed creates a WorkflowConfirmed event.
func NewWorkflowConfirmed(w *SchedulingWorkflow) *WorkflowConfirmed {
	return &WorkflowConfirmed{
		BaseEvent:        sharedDomain.NewBaseEvent(w.ID(), aggregateType, "scheduling.workflow.confirmed"),
		WorkflowID:       w.ID(),
		MeetingRequestID: w.MeetingRequestID(),
	}
}

// WorkflowExpired is emitted when the reply deadline passed with no answer.
type WorkflowExpired struct {
	sharedDomain.BaseEvent
	WorkflowID       uuid.UUID `json:"workflow_id"`
	MeetingRequestID uuid.UUID `json:"meeting_request_id"`
	Reason           string    `json:"reason"`
}

// NewWorkflowExpired creates a WorkflowExpired event.
func NewWorkflowExpired(w *SchedulingWorkflow) *WorkflowExpired {
	return &WorkflowExpired{
		BaseEvent:        sharedDomain.NewBaseEvent(w.ID(), aggregateType, "scheduling.workflow.expired"),
		WorkflowID:       w.ID(),
		MeetingRequestID: w.MeetingRequestID(),
		Reason:           w.FailureReason(),
	}
}

// WorkflowFailed is emitted after an unrecoverable error.
type WorkflowFailed struct {
	sharedDomain.BaseEvent
	WorkflowID       uuid.UUID `json:"workflow_id"`
	MeetingRequestID uuid.UUID `json:"meeting_request_id"`
	Reason           string    `json:"reason"`
}

// NewWorkflowFailed creates a WorkflowFailed event.
func NewWorkflowFailed(w *SchedulingWorkflow) *WorkflowFailed {
	return &WorkflowFailed{
		BaseEvent:        sharedDomain.NewBaseEvent(w.ID(), aggregateType, "scheduling.workflow.failed"),
		WorkflowID:       w.ID(),
		MeetingRequestID: w.MeetingRequestID(),
		Reason:           w.FailureReason(),
	}
}

// WorkflowCancelled is emitted when the user withdraws the request.
type WorkflowCancelled struct {
	sharedDomain.BaseEvent
	WorkflowID       uuid.UUID `json:"workflow_id"`
	MeetingRequestID uuid.UUID `json:"meeting_request_id"`
	Reason           string    `json:"reason"`
}

// NewWorkflowCancelled creates a WorkflowCancelled event.
func NewWorkflowCancelled(w *SchedulingWorkflow) *WorkflowCancelled {
	return &WorkflowCancelled{
		BaseEvent:        sharedDomain.NewBaseEvent(w.ID(), aggregateType, "scheduling.workflow.cancelled"),
		WorkflowID:       w.ID(),
		MeetingRequestID: w.MeetingRequestID(),
		Reason:           w.FailureReason(),
	}
}
