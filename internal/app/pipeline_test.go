package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calendarApp "github.com/felixgeelhaar/tempora/internal/calendar/application"
	extractionApp "github.com/felixgeelhaar/tempora/internal/extraction/application"
	extractionDomain "github.com/felixgeelhaar/tempora/internal/extraction/domain"
	holdsDomain "github.com/felixgeelhaar/tempora/internal/holds/domain"
	workflowApp "github.com/felixgeelhaar/tempora/internal/workflow/application"
	workflowDomain "github.com/felixgeelhaar/tempora/internal/workflow/domain"
	"github.com/felixgeelhaar/tempora/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:              "test",
		HoldTTL:             30 * time.Minute,
		MaxCandidates:       3,
		ConfidenceThreshold: 0.6,
		DurationCapMinutes:  120,
		WorkStart:           9 * time.Hour,
		WorkEnd:             17 * time.Hour,
		BufferMinutes:       15,
		MaxRetries:          3,
		DefaultTimezone:     "UTC",
		SweepInterval:       5 * time.Minute,
		CalendarProvider:    "memory",
		CalendarID:          "primary",
	}
}

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	c, err := NewContainer(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// The full pipeline: inbound text through extraction, availability, holds
// and orchestration down to a created calendar event.
func TestPipeline_EndToEnd(t *testing.T) {
	c := newTestContainer(t)
	ctx := context.Background()

	// Monday, so "Tuesday" resolves to the next day.
	received := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	msg := extractionApp.InboundMessage{
		ID:             "msg-e2e-1",
		Sender:         "alice@example.com",
		Subject:        "Quarterly review",
		Body:           "Can we sync Tuesday 2-3 PM EST, about 45 min?",
		ReceivedAt:     received,
		SenderTimezone: "America/Los_Angeles",
	}

	request, err := c.Extractor.Extract(ctx, msg)
	require.NoError(t, err)
	require.NotNil(t, request, "message should be detected as a meeting request")

	assert.Equal(t, 45, request.DurationMinutes())
	windows := request.PreferredWindows()
	require.Len(t, windows, 1)
	// 2 PM New York, not Los Angeles: explicit zone mention wins.
	wantStart := time.Date(2026, time.March, 3, 19, 0, 0, 0, time.UTC)
	assert.True(t, windows[0].Start().Equal(wantStart), "got %v", windows[0].Start())

	require.NoError(t, c.Requests.Save(ctx, request))

	workflow, err := c.Orchestrator.StartWorkflow(ctx, request)
	require.NoError(t, err)
	assert.Equal(t, workflowDomain.DirectSchedule, workflow.Type())
	assert.Equal(t, workflowDomain.StateAwaitingReply, workflow.State())
	assert.Equal(t, extractionDomain.StatusNegotiating, request.Status())

	held, err := c.HoldManager.FindForRequest(ctx, request.ID())
	require.NoError(t, err)
	require.NotEmpty(t, held)
	assert.True(t, held[0].Window().Start().Equal(wantStart))

	// Simulated acceptance reply.
	err = c.Orchestrator.HandleReply(ctx, workflowApp.ReplySignal{
		MeetingRequestID: request.ID(),
		HoldID:           held[0].ID(),
	})
	require.NoError(t, err)

	assert.Equal(t, workflowDomain.StateConfirmed, workflow.State())
	assert.Equal(t, extractionDomain.StatusScheduled, request.Status())

	// The chosen hold is confirmed; nothing else stays reserved.
	held, err = c.HoldManager.FindForRequest(ctx, request.ID())
	require.NoError(t, err)
	confirmed := 0
	for _, hold := range held {
		switch hold.Status() {
		case holdsDomain.HoldConfirmed:
			confirmed++
		case holdsDomain.HoldPending:
			t.Fatalf("hold %s still pending after confirmation", hold.ID())
		}
	}
	assert.Equal(t, 1, confirmed)

	backendEvents := backendEventsFor(t, c)
	require.Len(t, backendEvents, 1)
	assert.True(t, backendEvents[0].Start.Equal(wantStart))
	assert.Equal(t, "Quarterly review", backendEvents[0].Title)

	// State survives a reload from persistence.
	reloaded, err := c.Workflows.FindByMeetingRequestID(ctx, request.ID())
	require.NoError(t, err)
	assert.Equal(t, workflowDomain.StateConfirmed, reloaded.State())
}

func TestPipeline_VagueTextIsIgnored(t *testing.T) {
	c := newTestContainer(t)
	ctx := context.Background()

	request, err := c.Extractor.Extract(ctx, extractionApp.InboundMessage{
		ID:         "msg-e2e-2",
		Sender:     "bob@example.com",
		Subject:    "Newsletter",
		Body:       "This week in Go: release notes and community links.",
		ReceivedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Nil(t, request)
}

func backendEventsFor(t *testing.T, c *Container) []calendarApp.EventDraft {
	t.Helper()
	memory, ok := c.backend.(*calendarApp.MemoryBackend)
	require.True(t, ok, "test config should wire the memory backend")
	return memory.Events(c.Config.CalendarID)
}
