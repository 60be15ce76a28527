package application

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidHints      = errors.New("classifier hints failed validation")
	ErrClassifierFailure = errors.New("intent classifier failure")
)

// InboundMessage is the raw material the pipeline starts from.
type InboundMessage struct {
	ID             string
	Sender         string
	Subject        string
	Body           string
	ReceivedAt     time.Time
	SenderTimezone string // IANA zone of the sender's calendar, may be empty
}

// Text returns the combined searchable text of the message.
func (m InboundMessage) Text() string {
	return strings.TrimSpace(m.Subject + "\n" + m.Body)
}

// Hints are the structured entities a classifier extracted from the message.
// The struct is validated at the boundary so downstream code never consumes
// free-form classifier output.
type Hints struct {
	Purpose         string
	DurationMinutes int
	Attendees       []string
	Location        string
}

// Validate rejects hints that no well-behaved classifier should produce.
func (h Hints) Validate() error {
	if h.DurationMinutes < 0 {
		return ErrInvalidHints
	}
	for _, attendee := range h.Attendees {
		if strings.TrimSpace(attendee) == "" {
			return ErrInvalidHints
		}
	}
	return nil
}

// ClassificationResult is the classifier's verdict on one message.
type ClassificationResult struct {
	IsMeetingRequest bool
	Confidence       float64
	Hints            Hints
}

// IntentClassifier decides whether a message asks for a meeting and extracts
// entity hints. Implementations may call an external model; the default is a
// deterministic keyword scorer.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) (ClassificationResult, error)
}
