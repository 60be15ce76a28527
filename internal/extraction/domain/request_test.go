package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/google/uuid"
)

func newTestRequest(t *testing.T) *MeetingRequest {
	t.Helper()
	window, err := sharedDomain.NewTimeWindow(
		time.Date(2026, time.March, 3, 14, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 3, 15, 0, 0, 0, time.UTC),
		time.UTC,
	)
	require.NoError(t, err)

	request, err := NewMeetingRequest(
		"msg-123",
		"alice@example.com",
		"Quick sync",
		MeetingTypeRegular,
		45,
		[]sharedDomain.TimeWindow{window},
		[]string{"bob@example.com"},
		"video",
		UrgencyMedium,
		82,
	)
	require.NoError(t, err)
	return request
}

func TestNewMeetingRequest(t *testing.T) {
	request := newTestRequest(t)

	assert.Equal(t, "msg-123", request.SourceMessageID())
	assert.Equal(t, "alice@example.com", request.Sender())
	assert.Equal(t, MeetingTypeRegular, request.MeetingType())
	assert.Equal(t, 45, request.DurationMinutes())
	assert.Equal(t, 82, request.DetectionConfidence())
	assert.Equal(t, StatusPending, request.Status())
	assert.True(t, request.HasSpecificTimes())

	events := request.DomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "scheduling.request.detected", events[0].RoutingKey())
}

func TestNewMeetingRequest_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*requestArgs)
		expected error
	}{
		{"empty source", func(a *requestArgs) { a.source = " " }, ErrRequestEmptySource},
		{"empty sender", func(a *requestArgs) { a.sender = "" }, ErrRequestEmptySender},
		{"bad type", func(a *requestArgs) { a.meetingType = "adhoc" }, ErrRequestInvalidType},
		{"bad urgency", func(a *requestArgs) { a.urgency = "extreme" }, ErrRequestInvalidUrgency},
		{"zero duration", func(a *requestArgs) { a.duration = 0 }, ErrRequestInvalidDuration},
		{"confidence too high", func(a *requestArgs) { a.confidence = 101 }, ErrRequestInvalidConfidence},
		{"confidence negative", func(a *requestArgs) { a.confidence = -1 }, ErrRequestInvalidConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := validRequestArgs()
			tt.mutate(&args)

			_, err := NewMeetingRequest(
				args.source, args.sender, "subject", args.meetingType,
				args.duration, nil, nil, "", args.urgency, args.confidence,
			)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

type requestArgs struct {
	source      string
	sender      string
	meetingType MeetingType
	duration    int
	urgency     UrgencyLevel
	confidence  int
}

func validRequestArgs() requestArgs {
	return requestArgs{
		source:      "msg-1",
		sender:      "alice@example.com",
		meetingType: MeetingTypeRegular,
		duration:    60,
		urgency:     UrgencyMedium,
		confidence:  80,
	}
}

func TestMeetingRequest_StatusMachine(t *testing.T) {
	request := newTestRequest(t)

	require.NoError(t, request.StartNegotiation())
	assert.Equal(t, StatusNegotiating, request.Status())

	require.NoError(t, request.MarkScheduled())
	assert.Equal(t, StatusScheduled, request.Status())

	// Terminal states are immutable.
	assert.ErrorIs(t, request.StartNegotiation(), ErrRequestTerminal)
	assert.ErrorIs(t, request.Cancel("changed my mind"), ErrRequestTerminal)
}

func TestMeetingRequest_DirectScheduleSkipsNegotiation(t *testing.T) {
	request := newTestRequest(t)

	require.NoError(t, request.MarkScheduled())
	assert.Equal(t, StatusScheduled, request.Status())
}

func TestMeetingRequest_CancelRecordsReason(t *testing.T) {
	request := newTestRequest(t)

	require.NoError(t, request.Cancel("no response"))

	assert.Equal(t, StatusCancelled, request.Status())
	assert.Equal(t, "no response", request.StatusReason())

	events := request.DomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "scheduling.request.closed", events[1].RoutingKey())
}

func TestMeetingRequest_ExpireFromNegotiating(t *testing.T) {
	request := newTestRequest(t)

	require.NoError(t, request.StartNegotiation())
	require.NoError(t, request.Expire("all holds expired"))

	assert.Equal(t, StatusExpired, request.Status())
	assert.True(t, request.Status().IsTerminal())
}

func TestMeetingRequest_DoubleNegotiationRejected(t *testing.T) {
	request := newTestRequest(t)

	require.NoError(t, request.StartNegotiation())
	assert.ErrorIs(t, request.StartNegotiation(), ErrRequestInvalidTransition)
}

func TestRehydrateMeetingRequest(t *testing.T) {
	id := uuid.New()
	createdAt := time.Now().UTC().Add(-time.Hour)
	updatedAt := time.Now().UTC()

	request := RehydrateMeetingRequest(
		id, "msg-9", "carol@example.com", "Planning",
		MeetingTypeRecurring, 60, nil, []string{"dave@example.com"},
		"", UrgencyLow, 70, StatusNegotiating, "",
		createdAt, updatedAt,
	)

	assert.Equal(t, id, request.ID())
	assert.Equal(t, StatusNegotiating, request.Status())
	assert.False(t, request.HasSpecificTimes())
	assert.Empty(t, request.DomainEvents())
}

func TestMeetingRequest_AccessorsCopySlices(t *testing.T) {
	request := newTestRequest(t)

	attendees := request.Attendees()
	attendees[0] = "mallory@example.com"

	assert.Equal(t, []string{"bob@example.com"}, request.Attendees())
}
