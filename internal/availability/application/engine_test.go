package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calendarApp "github.com/felixgeelhaar/tempora/internal/calendar/application"
	"github.com/felixgeelhaar/tempora/internal/shared/domain"
)

// Tuesday, 3 March 2026.
var day = time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)

func searchWindow(t *testing.T, start, end time.Time) domain.TimeWindow {
	t.Helper()
	w, err := domain.NewTimeWindow(start, end, time.UTC)
	require.NoError(t, err)
	return w
}

func TestSuggestSlots_FreeDay(t *testing.T) {
	backend := calendarApp.NewMemoryBackend()
	engine := NewEngine(backend, nil, nil, nil)

	slots, err := engine.SuggestSlots(context.Background(), "primary", 60,
		searchWindow(t, day, day.AddDate(0, 0, 1)), DefaultPreferences())
	require.NoError(t, err)

	require.NotEmpty(t, slots)
	assert.Equal(t, day.Add(9*time.Hour), slots[0].Start)
	assert.Equal(t, day.Add(10*time.Hour), slots[0].End)
	assert.Equal(t, 95, slots[0].Confidence)
}

func TestSuggestSlots_RespectsBusyAndBuffer(t *testing.T) {
	backend := calendarApp.NewMemoryBackend()
	backend.AddBusy("primary", calendarApp.BusyInterval{
		Start: day.Add(9 * time.Hour),
		End:   day.Add(12 * time.Hour),
	})
	engine := NewEngine(backend, nil, nil, nil)

	prefs := DefaultPreferences()
	slots, err := engine.SuggestSlots(context.Background(), "primary", 60,
		searchWindow(t, day, day.AddDate(0, 0, 1)), prefs)
	require.NoError(t, err)

	require.NotEmpty(t, slots)
	// First free moment is 12:00 plus the 15 minute buffer.
	assert.Equal(t, day.Add(12*time.Hour+15*time.Minute), slots[0].Start)
}

func TestSuggestSlots_SkipsAvoidedWeekdays(t *testing.T) {
	backend := calendarApp.NewMemoryBackend()
	engine := NewEngine(backend, nil, nil, nil)

	// Saturday 7 March through Monday 9 March.
	saturday := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)
	slots, err := engine.SuggestSlots(context.Background(), "primary", 60,
		searchWindow(t, saturday, saturday.AddDate(0, 0, 3)), DefaultPreferences())
	require.NoError(t, err)

	require.NotEmpty(t, slots)
	for _, slot := range slots {
		assert.Equal(t, time.Monday, slot.Start.Weekday())
	}
}

func TestSuggestSlots_BoundedCandidateCount(t *testing.T) {
	backend := calendarApp.NewMemoryBackend()
	engine := NewEngine(backend, nil, nil, nil)

	slots, err := engine.SuggestSlots(context.Background(), "primary", 30,
		searchWindow(t, day, day.AddDate(0, 0, 7)), DefaultPreferences())
	require.NoError(t, err)

	assert.Len(t, slots, 3)
}

func TestSuggestSlots_EarlierDaysRankHigher(t *testing.T) {
	backend := calendarApp.NewMemoryBackend()
	// Tuesday fully booked during working hours.
	backend.AddBusy("primary", calendarApp.BusyInterval{
		Start: day.Add(9 * time.Hour),
		End:   day.Add(17 * time.Hour),
	})
	engine := NewEngine(backend, nil, nil, nil)

	slots, err := engine.SuggestSlots(context.Background(), "primary", 60,
		searchWindow(t, day, day.AddDate(0, 0, 3)), DefaultPreferences())
	require.NoError(t, err)

	require.NotEmpty(t, slots)
	assert.Equal(t, day.AddDate(0, 0, 1).Add(9*time.Hour), slots[0].Start)
	assert.Less(t, slots[0].Confidence, 95)
	assert.GreaterOrEqual(t, slots[0].Confidence, 50)
}

func TestSuggestSlots_BackendFailureIsRetryable(t *testing.T) {
	backend := calendarApp.NewMemoryBackend()
	backend.FailWith(calendarApp.ErrBackendUnavailable)
	engine := NewEngine(backend, nil, nil, nil)

	_, err := engine.SuggestSlots(context.Background(), "primary", 60,
		searchWindow(t, day, day.AddDate(0, 0, 1)), DefaultPreferences())

	assert.ErrorIs(t, err, calendarApp.ErrBackendUnavailable)
}

func TestSuggestSlots_NoFabricatedAvailability(t *testing.T) {
	backend := calendarApp.NewMemoryBackend()
	backend.AddBusy("primary", calendarApp.BusyInterval{
		Start: day.Add(9 * time.Hour),
		End:   day.Add(17 * time.Hour),
	})
	engine := NewEngine(backend, nil, nil, nil)

	slots, err := engine.SuggestSlots(context.Background(), "primary", 60,
		searchWindow(t, day, day.AddDate(0, 0, 1)), DefaultPreferences())
	require.NoError(t, err)

	assert.Empty(t, slots)
}

type mapCache struct {
	data map[string][]calendarApp.BusyInterval
	hits int
}

func (c *mapCache) Get(_ context.Context, calendarID string, window domain.TimeWindow) ([]calendarApp.BusyInterval, bool) {
	intervals, ok := c.data[calendarID]
	if ok {
		c.hits++
	}
	return intervals, ok
}

func (c *mapCache) Set(_ context.Context, calendarID string, _ domain.TimeWindow, intervals []calendarApp.BusyInterval) {
	c.data[calendarID] = intervals
}

func TestSuggestSlots_UsesBusyCache(t *testing.T) {
	backend := calendarApp.NewMemoryBackend()
	cache := &mapCache{data: make(map[string][]calendarApp.BusyInterval)}
	engine := NewEngine(backend, cache, nil, nil)
	window := searchWindow(t, day, day.AddDate(0, 0, 1))

	_, err := engine.SuggestSlots(context.Background(), "primary", 60, window, DefaultPreferences())
	require.NoError(t, err)

	// Second call is served from the cache even if the backend is down.
	backend.FailWith(calendarApp.ErrBackendUnavailable)
	_, err = engine.SuggestSlots(context.Background(), "primary", 60, window, DefaultPreferences())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
}
