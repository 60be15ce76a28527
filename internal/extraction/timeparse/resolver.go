// Package timeparse resolves durations, timezones and date/time expressions
// from free-form meeting request text. Parsing is deterministic: every
// extraction kind is an ordered rule table evaluated by a single dispatcher,
// and expressions that cannot be anchored to a base date are dropped rather
// than guessed.
package timeparse

import (
	"time"
)

const (
	// DefaultDurationMinutes is used when no duration expression matches.
	DefaultDurationMinutes = 60

	// DefaultDurationCapMinutes bounds any matched duration.
	DefaultDurationCapMinutes = 120

	// attachmentWindow is how many characters around a date token are
	// searched for a clock-time expression.
	attachmentWindow = 50
)

// Window is a resolved absolute interval together with the timezone the
// expression was interpreted in.
type Window struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// Resolver parses time expressions against a reference instant.
type Resolver struct {
	defaultLocation *time.Location
	durationCap     int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDefaultLocation sets the zone used when neither the text nor the
// caller supplies one.
func WithDefaultLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.defaultLocation = loc
		}
	}
}

// WithDurationCap overrides the duration cap in minutes.
func WithDurationCap(minutes int) Option {
	return func(r *Resolver) {
		if minutes > 0 {
			r.durationCap = minutes
		}
	}
}

// NewResolver creates a resolver with the given options.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		defaultLocation: time.UTC,
		durationCap:     DefaultDurationCapMinutes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
