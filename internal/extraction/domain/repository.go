package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrRequestNotFound indicates no meeting request matches the query.
var ErrRequestNotFound = errors.New("meeting request not found")

// Repository defines the interface for meeting request persistence.
type Repository interface {
	Save(ctx context.Context, request *MeetingRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*MeetingRequest, error)
	FindBySourceMessageID(ctx context.Context, sourceMessageID string) (*MeetingRequest, error)
	FindByStatus(ctx context.Context, status RequestStatus) ([]*MeetingRequest, error)
}
