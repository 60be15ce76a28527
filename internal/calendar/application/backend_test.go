package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
)

func window(t *testing.T, startHour, endHour int) sharedDomain.TimeWindow {
	t.Helper()
	day := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)
	w, err := sharedDomain.NewTimeWindow(day.Add(time.Duration(startHour)*time.Hour), day.Add(time.Duration(endHour)*time.Hour), time.UTC)
	require.NoError(t, err)
	return w
}

func TestMemoryBackend_ListBusyFiltersWindow(t *testing.T) {
	backend := NewMemoryBackend()
	day := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)
	backend.AddBusy("primary", BusyInterval{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)})
	backend.AddBusy("primary", BusyInterval{Start: day.Add(20 * time.Hour), End: day.Add(21 * time.Hour)})

	intervals, err := backend.ListBusy(context.Background(), "primary", window(t, 9, 17))
	require.NoError(t, err)

	require.Len(t, intervals, 1)
	assert.Equal(t, day.Add(10*time.Hour), intervals[0].Start)
}

func TestMemoryBackend_CreateEventBlocksInterval(t *testing.T) {
	backend := NewMemoryBackend()
	day := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)

	created, err := backend.CreateEvent(context.Background(), "primary", EventDraft{
		Title: "Sync",
		Start: day.Add(14 * time.Hour),
		End:   day.Add(15 * time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	intervals, err := backend.ListBusy(context.Background(), "primary", window(t, 9, 17))
	require.NoError(t, err)
	require.Len(t, intervals, 1)
	assert.Equal(t, "Sync", intervals[0].Summary)
}

func TestBreakerBackend_OpensAfterConsecutiveFailures(t *testing.T) {
	backend := NewMemoryBackend()
	backend.FailWith(errors.New("connection refused"))

	cfg := DefaultBreakerConfig()
	cfg.FailureThreshold = 3
	wrapped := NewBreakerBackend(backend, cfg, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := wrapped.ListBusy(ctx, "primary", window(t, 9, 17))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrBackendUnavailable)
	}

	// Circuit is now open; failures surface as transient unavailability.
	_, err := wrapped.ListBusy(ctx, "primary", window(t, 9, 17))
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestBreakerBackend_PassesThroughOnSuccess(t *testing.T) {
	backend := NewMemoryBackend()
	day := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)
	backend.AddBusy("primary", BusyInterval{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)})

	wrapped := NewBreakerBackend(backend, DefaultBreakerConfig(), nil)

	intervals, err := wrapped.ListBusy(context.Background(), "primary", window(t, 9, 17))
	require.NoError(t, err)
	assert.Len(t, intervals, 1)
}
