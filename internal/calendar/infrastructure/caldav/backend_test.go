package caldav

import (
	"strings"
	"testing"
	"time"

	calendarApp "github.com/felixgeelhaar/tempora/internal/calendar/application"
	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

func TestNewBackend(t *testing.T) {
	backend := NewBackend("https://caldav.example.com", "user", "pass", nil)

	if backend == nil {
		t.Fatal("expected non-nil backend")
	}
	if backend.baseURL != "https://caldav.example.com" {
		t.Errorf("expected baseURL 'https://caldav.example.com', got %s", backend.baseURL)
	}
	if backend.calendarPath != "" {
		t.Errorf("expected empty calendarPath, got %s", backend.calendarPath)
	}
}

func TestBackend_WithCalendarPath(t *testing.T) {
	backend := NewBackend("https://caldav.example.com", "user", "pass", nil)

	result := backend.WithCalendarPath("/calendars/user/work/")

	if result != backend {
		t.Error("expected same backend instance returned for chaining")
	}
	if backend.calendarPath != "/calendars/user/work/" {
		t.Errorf("expected calendarPath '/calendars/user/work/', got %s", backend.calendarPath)
	}
}

func TestToICalendar(t *testing.T) {
	start := time.Date(2026, time.March, 3, 14, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 3, 15, 0, 0, 0, time.UTC)

	cal := toICalendar("evt-1", calendarApp.EventDraft{
		Title:     "Sync",
		Location:  "video",
		Start:     start,
		End:       end,
		Attendees: []string{"bob@example.com"},
	})

	if cal == nil {
		t.Fatal("expected non-nil calendar")
	}
	if version := cal.Props.Get(ical.PropVersion); version == nil || version.Value != "2.0" {
		t.Error("expected VERSION:2.0")
	}
	if prodID := cal.Props.Get(ical.PropProductID); prodID == nil || !strings.Contains(prodID.Value, "Tempora") {
		t.Error("expected PRODID containing 'Tempora'")
	}

	if len(cal.Children) != 1 {
		t.Fatalf("expected 1 child (VEVENT), got %d", len(cal.Children))
	}

	vevent := cal.Children[0]
	if vevent.Name != ical.CompEvent {
		t.Errorf("expected VEVENT, got %s", vevent.Name)
	}
	if uid := vevent.Props.Get(ical.PropUID); uid == nil || uid.Value != "evt-1" {
		t.Error("expected UID 'evt-1'")
	}
	if summary := vevent.Props.Get(ical.PropSummary); summary == nil || summary.Value != "Sync" {
		t.Error("expected SUMMARY 'Sync'")
	}
	if attendees := vevent.Props[ical.PropAttendee]; len(attendees) != 1 || attendees[0].Value != "mailto:bob@example.com" {
		t.Error("expected one mailto attendee")
	}
	if tempora := vevent.Props[PropXTempora]; len(tempora) == 0 || tempora[0].Value != "1" {
		t.Error("expected X-TEMPORA:1 property")
	}
}

func TestParseBusyInterval_SkipsCancelled(t *testing.T) {
	cal := toICalendar("evt-2", calendarApp.EventDraft{
		Title: "Cancelled meeting",
		Start: time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC),
	})
	cal.Children[0].Props.SetText(ical.PropStatus, "CANCELLED")

	obj := &caldav.CalendarObject{Data: cal}
	if _, ok := parseBusyInterval(obj); ok {
		t.Error("expected cancelled event to be skipped")
	}
}

func TestParseBusyInterval(t *testing.T) {
	start := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	cal := toICalendar("evt-3", calendarApp.EventDraft{Title: "Standup", Start: start, End: end})

	interval, ok := parseBusyInterval(&caldav.CalendarObject{Data: cal})
	if !ok {
		t.Fatal("expected interval")
	}
	if !interval.Start.Equal(start) || !interval.End.Equal(end) {
		t.Errorf("expected [%v, %v), got [%v, %v)", start, end, interval.Start, interval.End)
	}
	if interval.Summary != "Standup" {
		t.Errorf("expected summary 'Standup', got %s", interval.Summary)
	}
}
