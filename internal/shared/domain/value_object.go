package domain

import (
	"errors"
	"time"
)

// ValueObject represents an immutable domain concept defined by its attributes.
type ValueObject interface {
	Equals(other ValueObject) bool
}

// ErrInvalidTimeWindow indicates a window whose end is not after its start.
var ErrInvalidTimeWindow = errors.New("time window end must be after start")

// TimeWindow is a half-open interval [start, end) in a concrete timezone.
// It is shared across bounded contexts: extraction produces preferred
// windows, availability searches within them, holds reserve them.
type TimeWindow struct {
	start    time.Time
	end      time.Time
	timezone *time.Location
}

// NewTimeWindow creates a validated time window.
func NewTimeWindow(start, end time.Time, timezone *time.Location) (TimeWindow, error) {
	if !end.After(start) {
		return TimeWindow{}, ErrInvalidTimeWindow
	}
	if timezone == nil {
		timezone = time.UTC
	}
	return TimeWindow{start: start.UTC(), end: end.UTC(), timezone: timezone}, nil
}

func (w TimeWindow) Start() time.Time          { return w.start }
func (w TimeWindow) End() time.Time            { return w.end }
func (w TimeWindow) Timezone() *time.Location  { return w.timezone }
func (w TimeWindow) Duration() time.Duration   { return w.end.Sub(w.start) }

// Overlaps reports whether two windows share any instant.
// Intervals are half-open, so touching windows do not overlap.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.start.Before(other.end) && w.end.After(other.start)
}

// Contains reports whether the instant falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.start) && t.Before(w.end)
}

// Equals checks if two windows cover the same interval.
func (w TimeWindow) Equals(other ValueObject) bool {
	o, ok := other.(TimeWindow)
	if !ok {
		return false
	}
	return w.start.Equal(o.start) && w.end.Equal(o.end)
}
