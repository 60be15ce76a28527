package application

import (
	"context"
	"sort"
	"sync"

	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/google/uuid"
)

// MemoryBackend is an in-process CalendarBackend. It backs local development
// and tests, and doubles as the reference implementation of the port's
// semantics.
type MemoryBackend struct {
	mu     sync.RWMutex
	busy   map[string][]BusyInterval
	events map[string][]EventDraft
	fail   error
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		busy:   make(map[string][]BusyInterval),
		events: make(map[string][]EventDraft),
	}
}

// AddBusy seeds an occupied interval on a calendar.
func (m *MemoryBackend) AddBusy(calendarID string, interval BusyInterval) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy[calendarID] = append(m.busy[calendarID], interval)
}

// FailWith makes every subsequent call return err; nil restores normal
// operation.
func (m *MemoryBackend) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// ListBusy returns intervals overlapping the window, sorted by start.
func (m *MemoryBackend) ListBusy(_ context.Context, calendarID string, window sharedDomain.TimeWindow) ([]BusyInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fail != nil {
		return nil, m.fail
	}

	var intervals []BusyInterval
	for _, interval := range m.busy[calendarID] {
		if interval.Start.Before(window.End()) && interval.End.After(window.Start()) {
			intervals = append(intervals, interval)
		}
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start.Before(intervals[j].Start) })
	return intervals, nil
}

// CreateEvent records the event and marks its interval busy.
func (m *MemoryBackend) CreateEvent(_ context.Context, calendarID string, draft EventDraft) (CreatedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return CreatedEvent{}, m.fail
	}

	m.events[calendarID] = append(m.events[calendarID], draft)
	m.busy[calendarID] = append(m.busy[calendarID], BusyInterval{
		Start:   draft.Start,
		End:     draft.End,
		Summary: draft.Title,
	})
	return CreatedEvent{ID: uuid.NewString()}, nil
}

// Events returns the events created on a calendar.
func (m *MemoryBackend) Events(calendarID string) []EventDraft {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]EventDraft, len(m.events[calendarID]))
	copy(events, m.events[calendarID])
	return events
}
