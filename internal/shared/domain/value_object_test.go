package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeWindow_Validation(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	_, err := NewTimeWindow(start, start, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidTimeWindow)

	_, err = NewTimeWindow(start, start.Add(-time.Hour), time.UTC)
	assert.ErrorIs(t, err, ErrInvalidTimeWindow)

	w, err := NewTimeWindow(start, start.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, w.Timezone())
	assert.Equal(t, time.Hour, w.Duration())
}

func TestTimeWindow_Overlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	mustWindow := func(startOffset, endOffset time.Duration) TimeWindow {
		w, err := NewTimeWindow(base.Add(startOffset), base.Add(endOffset), time.UTC)
		require.NoError(t, err)
		return w
	}

	tests := []struct {
		name     string
		a, b     TimeWindow
		overlaps bool
	}{
		{"identical", mustWindow(0, time.Hour), mustWindow(0, time.Hour), true},
		{"partial", mustWindow(0, time.Hour), mustWindow(30*time.Minute, 90*time.Minute), true},
		{"contained", mustWindow(0, 2*time.Hour), mustWindow(30*time.Minute, time.Hour), true},
		{"touching", mustWindow(0, time.Hour), mustWindow(time.Hour, 2*time.Hour), false},
		{"disjoint", mustWindow(0, time.Hour), mustWindow(2*time.Hour, 3*time.Hour), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlaps, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.overlaps, tc.b.Overlaps(tc.a))
		})
	}
}

func TestTimeWindow_Contains(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	w, err := NewTimeWindow(start, start.Add(time.Hour), time.UTC)
	require.NoError(t, err)

	assert.True(t, w.Contains(start))
	assert.True(t, w.Contains(start.Add(30*time.Minute)))
	assert.False(t, w.Contains(start.Add(time.Hour))) // half-open
	assert.False(t, w.Contains(start.Add(-time.Second)))
}

func TestBaseEntity_TouchAdvancesUpdatedAt(t *testing.T) {
	e := NewBaseEntity()
	before := e.UpdatedAt()
	time.Sleep(time.Millisecond)
	e.Touch()
	assert.True(t, e.UpdatedAt().After(before))
	assert.True(t, e.CreatedAt().Before(e.UpdatedAt()))
}

func TestBaseAggregateRoot_Events(t *testing.T) {
	agg := NewBaseAggregateRoot()
	assert.Empty(t, agg.DomainEvents())

	agg.AddDomainEvent(NewStubEvent(agg.ID()))
	assert.Len(t, agg.DomainEvents(), 1)

	agg.ClearDomainEvents()
	assert.Empty(t, agg.DomainEvents())
}

type stubEvent struct {
	BaseEvent
}

// NewStubEvent builds a minimal event for kernel tests.
func NewStubEvent(aggregateID uuid.UUID) DomainEvent {
	return &stubEvent{BaseEvent: NewBaseEvent(aggregateID, "Stub", "stub.created")}
}
