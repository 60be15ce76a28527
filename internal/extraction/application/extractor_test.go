package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tempora/internal/extraction/domain"
	"github.com/felixgeelhaar/tempora/internal/extraction/timeparse"
)

type stubClassifier struct {
	result ClassificationResult
	err    error
	called bool
}

func (s *stubClassifier) Classify(_ context.Context, _ string) (ClassificationResult, error) {
	s.called = true
	return s.result, s.err
}

func meetingResult(confidence float64) ClassificationResult {
	return ClassificationResult{
		IsMeetingRequest: true,
		Confidence:       confidence,
		Hints:            Hints{Purpose: "sync"},
	}
}

func newMessage(subject, body string) InboundMessage {
	return InboundMessage{
		ID:         "msg-1",
		Sender:     "Alice@Example.com",
		Subject:    subject,
		Body:       body,
		ReceivedAt: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC), // Monday
	}
}

func TestExtract_PreFilterSkipsClassifier(t *testing.T) {
	classifier := &stubClassifier{result: meetingResult(0.99)}
	extractor := NewExtractor(classifier, timeparse.NewResolver(), 0.6, nil)

	request, err := extractor.Extract(context.Background(), newMessage("Your invoice", "Payment is due Friday."))

	require.NoError(t, err)
	assert.Nil(t, request)
	assert.False(t, classifier.called)
}

func TestExtract_BelowThresholdReturnsNil(t *testing.T) {
	classifier := &stubClassifier{result: meetingResult(0.4)}
	extractor := NewExtractor(classifier, timeparse.NewResolver(), 0.6, nil)

	request, err := extractor.Extract(context.Background(), newMessage("Meeting?", "Can we meet tomorrow?"))

	require.NoError(t, err)
	assert.Nil(t, request)
	assert.True(t, classifier.called)
}

func TestExtract_NotAMeetingReturnsNil(t *testing.T) {
	classifier := &stubClassifier{result: ClassificationResult{IsMeetingRequest: false, Confidence: 0.9}}
	extractor := NewExtractor(classifier, timeparse.NewResolver(), 0.6, nil)

	request, err := extractor.Extract(context.Background(), newMessage("Meeting notes", "Minutes from our last call attached."))

	require.NoError(t, err)
	assert.Nil(t, request)
}

func TestExtract_ClassifierErrorIsWrapped(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("model timeout")}
	extractor := NewExtractor(classifier, timeparse.NewResolver(), 0.6, nil)

	_, err := extractor.Extract(context.Background(), newMessage("Meeting?", "Can we meet tomorrow?"))

	assert.ErrorIs(t, err, ErrClassifierFailure)
}

func TestExtract_InvalidHintsRejected(t *testing.T) {
	classifier := &stubClassifier{result: ClassificationResult{
		IsMeetingRequest: true,
		Confidence:       0.9,
		Hints:            Hints{DurationMinutes: -10},
	}}
	extractor := NewExtractor(classifier, timeparse.NewResolver(), 0.6, nil)

	_, err := extractor.Extract(context.Background(), newMessage("Meeting?", "Can we meet tomorrow?"))

	assert.ErrorIs(t, err, ErrInvalidHints)
}

func TestExtract_PopulatesRequestFromText(t *testing.T) {
	classifier := &stubClassifier{result: meetingResult(0.85)}
	extractor := NewExtractor(classifier, timeparse.NewResolver(), 0.6, nil)

	msg := newMessage("Sync this week", "Can we sync Tuesday 2-3 PM EST, about 45 min? Bob should join.")
	msg.SenderTimezone = "America/Los_Angeles"

	request, err := extractor.Extract(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, request)

	assert.Equal(t, 45, request.DurationMinutes())
	assert.Equal(t, 85, request.DetectionConfidence())
	assert.Equal(t, domain.MeetingTypeRegular, request.MeetingType())
	assert.Equal(t, domain.UrgencyMedium, request.Urgency())
	assert.Equal(t, []string{"alice@example.com"}, request.Attendees())

	// Explicit EST mention beats the sender's Los Angeles zone.
	windows := request.PreferredWindows()
	require.Len(t, windows, 1)
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.True(t, windows[0].Start().Equal(time.Date(2026, time.March, 3, 14, 0, 0, 0, newYork)))
	assert.True(t, windows[0].End().Equal(time.Date(2026, time.March, 3, 15, 0, 0, 0, newYork)))
}

func TestExtract_VagueRequestHasNoWindows(t *testing.T) {
	classifier := &stubClassifier{result: meetingResult(0.9)}
	extractor := NewExtractor(classifier, timeparse.NewResolver(), 0.6, nil)

	request, err := extractor.Extract(context.Background(), newMessage("Hello", "We should catch up sometime."))
	require.NoError(t, err)
	require.NotNil(t, request)

	assert.False(t, request.HasSpecificTimes())
	assert.Empty(t, request.PreferredWindows())
	assert.Equal(t, 30, request.DurationMinutes())
}

func TestExtract_HintDurationFillsGap(t *testing.T) {
	classifier := &stubClassifier{result: ClassificationResult{
		IsMeetingRequest: true,
		Confidence:       0.8,
		Hints:            Hints{DurationMinutes: 90},
	}}
	extractor := NewExtractor(classifier, timeparse.NewResolver(), 0.6, nil)

	request, err := extractor.Extract(context.Background(), newMessage("Meeting", "Can we meet tomorrow at 2 PM?"))
	require.NoError(t, err)
	require.NotNil(t, request)

	assert.Equal(t, 90, request.DurationMinutes())
}

func TestExtract_ClassifiesTypeAndUrgency(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		meetingType domain.MeetingType
		urgency     domain.UrgencyLevel
	}{
		{"urgent", "urgent, need a call asap", domain.MeetingTypeUrgent, domain.UrgencyHigh},
		{"recurring", "let's set up a weekly sync", domain.MeetingTypeRecurring, domain.UrgencyMedium},
		{"flexible", "happy to meet whenever works", domain.MeetingTypeFlexible, domain.UrgencyLow},
		{"regular", "can we meet tomorrow at 2 PM?", domain.MeetingTypeRegular, domain.UrgencyMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := &stubClassifier{result: meetingResult(0.8)}
			extractor := NewExtractor(classifier, timeparse.NewResolver(), 0.6, nil)

			request, err := extractor.Extract(context.Background(), newMessage("Meeting", tt.body))
			require.NoError(t, err)
			require.NotNil(t, request)

			assert.Equal(t, tt.meetingType, request.MeetingType())
			assert.Equal(t, tt.urgency, request.Urgency())
		})
	}
}
