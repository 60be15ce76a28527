// Package classifier provides the default offline intent classifier: a
// deterministic keyword scorer with the same contract as an LLM-backed one.
package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/tempora/internal/extraction/application"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// scoredSignal contributes weight to the meeting-request score when its
// phrase occurs in the text.
type scoredSignal struct {
	phrase string
	weight float64
}

var intentSignals = []scoredSignal{
	{"can we meet", 0.35},
	{"can we sync", 0.35},
	{"let's meet", 0.35},
	{"let's sync", 0.35},
	{"schedule a", 0.3},
	{"set up a", 0.25},
	{"are you free", 0.3},
	{"are you available", 0.3},
	{"your availability", 0.3},
	{"catch up", 0.25},
	{"meeting", 0.2},
	{"call", 0.15},
	{"sync", 0.15},
	{"chat", 0.1},
	{"calendar", 0.1},
	{"book", 0.1},
}

var timeSignals = []scoredSignal{
	{"tomorrow", 0.15},
	{"today", 0.1},
	{"next week", 0.1},
	{"this week", 0.1},
	{" am", 0.05},
	{" pm", 0.1},
	{"monday", 0.1},
	{"tuesday", 0.1},
	{"wednesday", 0.1},
	{"thursday", 0.1},
	{"friday", 0.1},
}

// counterSignals push the score down for messages that mention meetings
// without requesting one.
var counterSignals = []scoredSignal{
	{"meeting notes", 0.3},
	{"meeting minutes", 0.3},
	{"recap", 0.2},
	{"recording", 0.2},
	{"cancelled", 0.25},
	{"unsubscribe", 0.4},
}

var locationKeywords = []string{"zoom", "teams", "meet link", "video", "phone", "office", "in person", "in-person"}

// KeywordClassifier scores scheduling intent from fixed keyword tables.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the offline classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify scores the text and extracts entity hints. It never fails: the
// offline scorer has no transport to time out on.
func (c *KeywordClassifier) Classify(_ context.Context, text string) (application.ClassificationResult, error) {
	lower := strings.ToLower(text)

	score := 0.0
	for _, signal := range intentSignals {
		if strings.Contains(lower, signal.phrase) {
			score += signal.weight
		}
	}
	hasIntent := score > 0
	for _, signal := range timeSignals {
		if strings.Contains(lower, signal.phrase) {
			score += signal.weight
		}
	}
	if strings.Contains(lower, "?") {
		score += 0.05
	}
	for _, signal := range counterSignals {
		if strings.Contains(lower, signal.phrase) {
			score -= signal.weight
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 0.95 {
		score = 0.95
	}

	return application.ClassificationResult{
		IsMeetingRequest: hasIntent && score >= 0.3,
		Confidence:       score,
		Hints: application.Hints{
			Purpose:   detectPurpose(lower),
			Attendees: emailPattern.FindAllString(text, -1),
			Location:  detectLocation(lower),
		},
	}, nil
}

func detectPurpose(lower string) string {
	switch {
	case strings.Contains(lower, "interview"):
		return "interview"
	case strings.Contains(lower, "review"):
		return "review"
	case strings.Contains(lower, "planning"):
		return "planning"
	case strings.Contains(lower, "catch up") || strings.Contains(lower, "catch-up"):
		return "catch up"
	case strings.Contains(lower, "sync"):
		return "sync"
	default:
		return ""
	}
}

func detectLocation(lower string) string {
	for _, keyword := range locationKeywords {
		if strings.Contains(lower, keyword) {
			return keyword
		}
	}
	return ""
}
