// Package application implements the availability engine: it turns busy
// intervals from the calendar backend into ranked candidate slots.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	calendarApp "github.com/felixgeelhaar/tempora/internal/calendar/application"
	"github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/felixgeelhaar/tempora/pkg/observability"
)

const (
	minConfidence = 50
	maxConfidence = 95
)

// CandidateSlot is a proposed meeting time. Slots live only until a hold is
// created for them; they are never persisted on their own.
type CandidateSlot struct {
	Start      time.Time
	End        time.Time
	Timezone   *time.Location
	Confidence int
}

// Window returns the slot as a time window.
func (s CandidateSlot) Window() (domain.TimeWindow, error) {
	return domain.NewTimeWindow(s.Start, s.End, s.Timezone)
}

// Preferences bound where and how slots are suggested.
type Preferences struct {
	WorkStart     time.Duration // offset from midnight
	WorkEnd       time.Duration
	BufferMinutes int
	AvoidWeekdays []time.Weekday
	MaxCandidates int
}

// DefaultPreferences returns the stock scheduling preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		WorkStart:     9 * time.Hour,
		WorkEnd:       17 * time.Hour,
		BufferMinutes: 15,
		AvoidWeekdays: []time.Weekday{time.Saturday, time.Sunday},
		MaxCandidates: 3,
	}
}

// BusyCache is an optional short-TTL cache in front of the calendar backend.
type BusyCache interface {
	Get(ctx context.Context, calendarID string, window domain.TimeWindow) ([]calendarApp.BusyInterval, bool)
	Set(ctx context.Context, calendarID string, window domain.TimeWindow, intervals []calendarApp.BusyInterval)
}

// Engine produces ranked candidate slots for a meeting request.
type Engine struct {
	backend calendarApp.CalendarBackend
	cache   BusyCache
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewEngine creates an availability engine. cache may be nil.
func NewEngine(backend calendarApp.CalendarBackend, cache BusyCache, logger *slog.Logger, metrics observability.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Engine{backend: backend, cache: cache, logger: logger, metrics: metrics}
}

// SuggestSlots returns at most prefs.MaxCandidates slots inside the search
// window, most confident first. A backend failure surfaces as a retryable
// error; availability is never fabricated.
func (e *Engine) SuggestSlots(ctx context.Context, calendarID string, durationMinutes int, window domain.TimeWindow, prefs Preferences) ([]CandidateSlot, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", durationMinutes)
	}
	if prefs.MaxCandidates <= 0 {
		prefs.MaxCandidates = DefaultPreferences().MaxCandidates
	}
	if prefs.WorkEnd <= prefs.WorkStart {
		defaults := DefaultPreferences()
		prefs.WorkStart, prefs.WorkEnd = defaults.WorkStart, defaults.WorkEnd
	}

	busy, err := e.listBusy(ctx, calendarID, window)
	if err != nil {
		return nil, fmt.Errorf("list busy intervals: %w", err)
	}

	duration := time.Duration(durationMinutes) * time.Minute
	buffer := time.Duration(prefs.BufferMinutes) * time.Minute
	loc := window.Timezone()

	var slots []CandidateSlot
	searchStart := window.Start().In(loc)
	for day := 0; ; day++ {
		dayStart := time.Date(searchStart.Year(), searchStart.Month(), searchStart.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, day)
		if !dayStart.Before(window.End()) {
			break
		}
		if avoided(dayStart.Weekday(), prefs.AvoidWeekdays) {
			continue
		}

		workStart := dayStart.Add(prefs.WorkStart)
		workEnd := dayStart.Add(prefs.WorkEnd)
		if workStart.Before(window.Start()) {
			workStart = window.Start().In(loc)
		}
		if workEnd.After(window.End()) {
			workEnd = window.End().In(loc)
		}
		if !workEnd.After(workStart) {
			continue
		}

		for _, gap := range findGaps(workStart, workEnd, busy, duration, buffer) {
			slots = append(slots, CandidateSlot{
				Start:      gap.start,
				End:        gap.start.Add(duration),
				Timezone:   loc,
				Confidence: scoreSlot(day, gap, duration),
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Confidence != slots[j].Confidence {
			return slots[i].Confidence > slots[j].Confidence
		}
		return slots[i].Start.Before(slots[j].Start)
	})
	if len(slots) > prefs.MaxCandidates {
		slots = slots[:prefs.MaxCandidates]
	}

	e.metrics.Counter("availability.suggestions", int64(len(slots)), observability.T("calendar", calendarID))
	e.logger.DebugContext(ctx, "candidate slots produced",
		"calendar_id", calendarID,
		"candidates", len(slots),
	)
	return slots, nil
}

func (e *Engine) listBusy(ctx context.Context, calendarID string, window domain.TimeWindow) ([]calendarApp.BusyInterval, error) {
	if e.cache != nil {
		if intervals, ok := e.cache.Get(ctx, calendarID, window); ok {
			e.metrics.Counter("availability.busy_cache_hit", 1)
			return intervals, nil
		}
	}

	intervals, err := e.backend.ListBusy(ctx, calendarID, window)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(ctx, calendarID, window, intervals)
	}
	return intervals, nil
}

type gap struct {
	start time.Time
	end   time.Time
}

// findGaps returns the free intervals between busy periods that fit the
// requested duration with buffer on both sides.
func findGaps(workStart, workEnd time.Time, busy []calendarApp.BusyInterval, duration, buffer time.Duration) []gap {
	periods := make([]calendarApp.BusyInterval, 0, len(busy))
	for _, interval := range busy {
		if interval.End.Before(workStart) || interval.Start.After(workEnd) {
			continue
		}
		periods = append(periods, interval)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Start.Before(periods[j].Start) })

	needed := duration + buffer
	var gaps []gap
	current := workStart

	for _, busy := range periods {
		busyStart := busy.Start
		if busyStart.Before(workStart) {
			busyStart = workStart
		}
		if busyStart.Sub(current) >= needed {
			gaps = append(gaps, gap{start: current, end: busyStart.Add(-buffer)})
		}
		next := busy.End.Add(buffer)
		if next.After(current) {
			current = next
		}
	}

	if workEnd.Sub(current) >= duration {
		gaps = append(gaps, gap{start: current, end: workEnd})
	}
	return gaps
}

// scoreSlot assigns a confidence in [50,95]: earlier days and roomier gaps
// score higher.
func scoreSlot(dayOffset int, g gap, duration time.Duration) int {
	confidence := maxConfidence
	confidence -= dayOffset * 10
	if g.end.Sub(g.start) < 2*duration {
		confidence -= 10
	}
	if confidence < minConfidence {
		confidence = minConfidence
	}
	return confidence
}

func avoided(day time.Weekday, avoid []time.Weekday) bool {
	for _, d := range avoid {
		if d == day {
			return true
		}
	}
	return false
}
