package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	calendarApp "github.com/felixgeelhaar/tempora/internal/calendar/application"
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
)

func testBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider := StaticTokenProvider{Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})}
	return NewBackendWithBaseURL(provider, nil, server.URL)
}

func testWindow(t *testing.T) sharedDomain.TimeWindow {
	t.Helper()
	w, err := sharedDomain.NewTimeWindow(
		time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 3, 17, 0, 0, 0, time.UTC),
		time.UTC,
	)
	require.NoError(t, err)
	return w
}

func TestListBusy(t *testing.T) {
	backend := testBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/freeBusy", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req freeBusyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []freeBusyItem{{ID: "primary"}}, req.Items)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"calendars": map[string]interface{}{
				"primary": map[string]interface{}{
					"busy": []map[string]string{
						{"start": "2026-03-03T10:00:00Z", "end": "2026-03-03T11:00:00Z"},
					},
				},
			},
		})
	})

	intervals, err := backend.ListBusy(context.Background(), "primary", testWindow(t))
	require.NoError(t, err)

	require.Len(t, intervals, 1)
	assert.Equal(t, time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC), intervals[0].Start)
}

func TestCreateEvent(t *testing.T) {
	backend := testBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)

		var event googleEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		assert.Equal(t, "Sync", event.Summary)
		assert.Equal(t, []googleAttendee{{Email: "bob@example.com"}}, event.Attendees)

		json.NewEncoder(w).Encode(googleEventResponse{ID: "evt-1"})
	})

	created, err := backend.CreateEvent(context.Background(), "primary", calendarApp.EventDraft{
		Title:     "Sync",
		Start:     time.Date(2026, time.March, 3, 14, 0, 0, 0, time.UTC),
		End:       time.Date(2026, time.March, 3, 15, 0, 0, 0, time.UTC),
		Attendees: []string{"bob@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", created.ID)
}

func TestServerErrorIsTransient(t *testing.T) {
	backend := testBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := backend.ListBusy(context.Background(), "primary", testWindow(t))
	assert.ErrorIs(t, err, calendarApp.ErrBackendUnavailable)
}

func TestClientErrorIsPermanent(t *testing.T) {
	backend := testBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := backend.CreateEvent(context.Background(), "primary", calendarApp.EventDraft{
		Title: "Sync",
		Start: time.Date(2026, time.March, 3, 14, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.March, 3, 15, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, calendarApp.ErrBackendRejected)
}

func TestMissingOAuthIsRejected(t *testing.T) {
	backend := NewBackend(nil, nil)

	_, err := backend.ListBusy(context.Background(), "primary", testWindow(t))
	assert.ErrorIs(t, err, calendarApp.ErrBackendRejected)
}
