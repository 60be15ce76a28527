package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists calendar holds.
//
// Create must atomically verify that no pending or confirmed hold overlaps
// the new hold's interval on the same calendar, and insert only if none
// does; it returns ErrHoldConflict otherwise. This atomicity is the
// mutual-exclusion guarantee of the whole subsystem.
type Repository interface {
	Create(ctx context.Context, hold *CalendarHold) error
	Save(ctx context.Context, hold *CalendarHold) error
	FindByID(ctx context.Context, id uuid.UUID) (*CalendarHold, error)
	FindByMeetingRequestID(ctx context.Context, requestID uuid.UUID) ([]*CalendarHold, error)
	ExpirePending(ctx context.Context, now time.Time) (int, error)
}
