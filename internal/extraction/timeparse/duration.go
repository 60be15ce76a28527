package timeparse

import (
	"regexp"
	"strconv"
	"strings"
)

// durationRule maps a textual pattern to a duration in minutes. Rules are
// evaluated in order; the first match wins.
type durationRule struct {
	name  string
	apply func(text string) (int, bool)
}

var (
	hoursPattern   = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`)
	minutesPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(?:minutes?|mins?)\b`)
)

// lexicalDurations are shortcut phrases with a conventional length.
var lexicalDurations = []struct {
	phrase  string
	minutes int
}{
	{"half an hour", 30},
	{"half hour", 30},
	{"quick chat", 15},
	{"brief meeting", 30},
	{"catch up", 30},
	{"catch-up", 30},
}

// shortMeetingLexemes describe meeting kinds that conventionally run an hour.
var shortMeetingLexemes = []string{
	"planning session",
	"team meeting",
	"standup",
	"stand-up",
	"sync",
	"check-in",
	"check in",
	"1:1",
	"one-on-one",
	"one on one",
}

var durationRules = []durationRule{
	{
		name: "numeric-hours",
		apply: func(text string) (int, bool) {
			m := hoursPattern.FindStringSubmatch(text)
			if m == nil {
				return 0, false
			}
			hours, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return 0, false
			}
			return int(hours * 60), true
		},
	},
	{
		name: "numeric-minutes",
		apply: func(text string) (int, bool) {
			m := minutesPattern.FindStringSubmatch(text)
			if m == nil {
				return 0, false
			}
			minutes, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, false
			}
			return minutes, true
		},
	},
	{
		name: "lexical-shortcut",
		apply: func(text string) (int, bool) {
			lower := strings.ToLower(text)
			for _, entry := range lexicalDurations {
				if strings.Contains(lower, entry.phrase) {
					return entry.minutes, true
				}
			}
			return 0, false
		},
	},
	{
		name: "short-meeting-lexeme",
		apply: func(text string) (int, bool) {
			lower := strings.ToLower(text)
			for _, lexeme := range shortMeetingLexemes {
				if strings.Contains(lower, lexeme) {
					return DefaultDurationMinutes, true
				}
			}
			return 0, false
		},
	},
}

// ResolveDuration returns the requested meeting length in minutes. Matched
// values are capped; without a match the default of one hour applies.
func (r *Resolver) ResolveDuration(text string) int {
	for _, rule := range durationRules {
		if minutes, ok := rule.apply(text); ok {
			if minutes > r.durationCap {
				return r.durationCap
			}
			if minutes <= 0 {
				return DefaultDurationMinutes
			}
			return minutes
		}
	}
	return DefaultDurationMinutes
}
