// Package application defines the calendar backend port the scheduling
// pipeline talks to, plus decorators and an in-memory implementation.
package application

import (
	"context"
	"errors"
	"time"

	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
)

var (
	// ErrBackendUnavailable marks transient backend failures; callers may
	// retry but must never fabricate availability.
	ErrBackendUnavailable = errors.New("calendar backend unavailable")

	// ErrBackendRejected marks permanent failures (bad credentials,
	// malformed event); retrying cannot help.
	ErrBackendRejected = errors.New("calendar backend rejected request")
)

// BusyInterval is an occupied interval on a calendar.
type BusyInterval struct {
	Start   time.Time
	End     time.Time
	Summary string
}

// EventDraft describes the calendar event to create once a meeting is
// confirmed.
type EventDraft struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
	Location    string
}

// CreatedEvent identifies the event a backend created.
type CreatedEvent struct {
	ID string
}

// CalendarBackend is the single port through which the pipeline reads and
// writes calendars.
type CalendarBackend interface {
	ListBusy(ctx context.Context, calendarID string, window sharedDomain.TimeWindow) ([]BusyInterval, error)
	CreateEvent(ctx context.Context, calendarID string, draft EventDraft) (CreatedEvent, error)
}
