package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/felixgeelhaar/tempora/internal/extraction/domain"
	"github.com/felixgeelhaar/tempora/internal/extraction/timeparse"
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/felixgeelhaar/tempora/pkg/observability"
)

// DefaultConfidenceThreshold is the minimum classifier confidence for a
// message to count as a meeting request.
const DefaultConfidenceThreshold = 0.6

// schedulingKeywords is the cheap lexical pre-filter. Messages matching none
// of these never reach the classifier.
var schedulingKeywords = []string{
	"meeting", "meet", "call", "sync", "chat", "catch up", "catch-up",
	"availability", "available", "schedule", "book", "calendar",
	"appointment", "discuss", "get together", "1:1", "one-on-one",
	"standup", "check-in", "huddle", "session",
}

var highUrgencyKeywords = []string{
	"urgent", "asap", "emergency", "critical", "immediately", "today", "deadline",
}

var lowUrgencyKeywords = []string{
	"whenever", "no rush", "flexible", "eventually",
}

// Extractor turns inbound messages into meeting request aggregates. It has
// no side effects: persistence is the caller's concern.
type Extractor struct {
	classifier IntentClassifier
	resolver   *timeparse.Resolver
	threshold  float64
	logger     *slog.Logger
}

// NewExtractor creates an extractor with the given classifier and resolver.
func NewExtractor(classifier IntentClassifier, resolver *timeparse.Resolver, threshold float64, logger *slog.Logger) *Extractor {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		classifier: classifier,
		resolver:   resolver,
		threshold:  threshold,
		logger:     logger,
	}
}

// Extract returns the meeting request detected in the message, or nil when
// the message does not ask for a meeting. The classifier is only invoked
// when the pre-filter matches.
func (e *Extractor) Extract(ctx context.Context, msg InboundMessage) (*domain.MeetingRequest, error) {
	ctx = observability.NewPipelineContext(ctx, msg.ID)
	defer observability.LogDuration(e.logger, "extract", time.Now())

	text := msg.Text()
	if !matchesSchedulingVocabulary(text) {
		e.logger.DebugContext(ctx, "message skipped by pre-filter", "message_id", msg.ID)
		return nil, nil
	}

	result, err := e.classifier.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierFailure, err)
	}
	if err := result.Hints.Validate(); err != nil {
		return nil, err
	}
	if !result.IsMeetingRequest || result.Confidence < e.threshold {
		e.logger.DebugContext(ctx, "message below detection threshold",
			"message_id", msg.ID,
			"confidence", result.Confidence,
		)
		return nil, nil
	}

	loc := e.resolver.ResolveTimezone(text, callerLocation(msg.SenderTimezone))
	ref := msg.ReceivedAt
	if ref.IsZero() {
		ref = time.Now()
	}

	var windows []sharedDomain.TimeWindow
	if timeparse.HasSpecificTimes(text) {
		for _, w := range e.resolver.ResolveDateTimes(text, ref, loc) {
			window, err := sharedDomain.NewTimeWindow(w.Start, w.End, w.Location)
			if err != nil {
				continue
			}
			windows = append(windows, window)
		}
	}

	duration := e.resolveDuration(text, result.Hints)
	meetingType := classifyMeetingType(text, result.Hints.Purpose)
	urgency := classifyUrgency(text)
	confidence := int(math.Round(result.Confidence * 100))

	request, err := domain.NewMeetingRequest(
		msg.ID,
		msg.Sender,
		msg.Subject,
		meetingType,
		duration,
		windows,
		mergeAttendees(msg.Sender, result.Hints.Attendees),
		result.Hints.Location,
		urgency,
		confidence,
	)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "meeting request detected",
		"message_id", msg.ID,
		"request_id", request.ID(),
		"meeting_type", string(meetingType),
		"windows", len(windows),
		"confidence", confidence,
	)
	return request, nil
}

// resolveDuration prefers an explicit expression in the text; the classifier
// hint only fills in when the text carries no duration signal.
func (e *Extractor) resolveDuration(text string, hints Hints) int {
	resolved := e.resolver.ResolveDuration(text)
	if resolved == timeparse.DefaultDurationMinutes && hints.DurationMinutes > 0 {
		if hints.DurationMinutes > timeparse.DefaultDurationCapMinutes {
			return timeparse.DefaultDurationCapMinutes
		}
		return hints.DurationMinutes
	}
	return resolved
}

func matchesSchedulingVocabulary(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range schedulingKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func classifyMeetingType(text, purpose string) domain.MeetingType {
	combined := strings.ToLower(text + " " + purpose)
	switch {
	case containsAny(combined, "urgent", "asap"):
		return domain.MeetingTypeUrgent
	case containsAny(combined, "weekly", "recurring", "every week", "biweekly", "monthly"):
		return domain.MeetingTypeRecurring
	case containsAny(combined, "flexible", "whenever"):
		return domain.MeetingTypeFlexible
	default:
		return domain.MeetingTypeRegular
	}
}

func classifyUrgency(text string) domain.UrgencyLevel {
	lower := strings.ToLower(text)
	if containsAny(lower, highUrgencyKeywords...) {
		return domain.UrgencyHigh
	}
	if containsAny(lower, lowUrgencyKeywords...) {
		return domain.UrgencyLow
	}
	return domain.UrgencyMedium
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func callerLocation(zone string) *time.Location {
	if zone == "" {
		return nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil
	}
	return loc
}

// mergeAttendees combines the sender with classifier-extracted attendees,
// dropping duplicates while keeping order.
func mergeAttendees(sender string, hinted []string) []string {
	seen := make(map[string]struct{}, len(hinted)+1)
	attendees := make([]string, 0, len(hinted)+1)
	for _, attendee := range append([]string{sender}, hinted...) {
		normalized := strings.ToLower(strings.TrimSpace(attendee))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		attendees = append(attendees, normalized)
	}
	return attendees
}
