package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists scheduling workflows. A unique constraint on the
// meeting request id guarantees at most one workflow per request.
type Repository interface {
	Save(ctx context.Context, workflow *SchedulingWorkflow) error
	FindByID(ctx context.Context, id uuid.UUID) (*SchedulingWorkflow, error)
	FindByMeetingRequestID(ctx context.Context, requestID uuid.UUID) (*SchedulingWorkflow, error)

	// FindDue returns awaiting workflows whose next action time has passed,
	// ordered by that time, at most limit of them.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*SchedulingWorkflow, error)
}
