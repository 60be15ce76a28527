// Package caldav implements the calendar backend against any CalDAV server
// (Apple Calendar, Fastmail, Nextcloud, etc.).
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	calendarApp "github.com/felixgeelhaar/tempora/internal/calendar/application"
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

// Common CalDAV server URLs
const (
	AppleCalDAVURL    = "https://caldav.icloud.com"
	FastmailCalDAVURL = "https://caldav.fastmail.com"
)

// PropXTempora marks events created by this pipeline.
const PropXTempora = "X-TEMPORA"

// Backend talks CalDAV.
type Backend struct {
	baseURL      string
	username     string
	password     string
	calendarPath string
	logger       *slog.Logger
}

// NewBackend creates a CalDAV calendar backend.
func NewBackend(baseURL, username, password string, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		baseURL:  baseURL,
		username: username,
		password: password,
		logger:   logger,
	}
}

// WithCalendarPath sets the specific calendar path to use.
func (b *Backend) WithCalendarPath(path string) *Backend {
	b.calendarPath = path
	return b
}

// ListBusy queries VEVENTs overlapping the window and returns them as busy
// intervals.
func (b *Backend) ListBusy(ctx context.Context, calendarID string, window sharedDomain.TimeWindow) ([]calendarApp.BusyInterval, error) {
	client, err := b.getClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", calendarApp.ErrBackendUnavailable, err)
	}

	calPath, err := b.resolveCalendarPath(ctx, client, calendarID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", calendarApp.ErrBackendUnavailable, err)
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Props: []string{"VERSION"},
			Comps: []caldav.CalendarCompRequest{
				{
					Name:  "VEVENT",
					Props: []string{"SUMMARY", "DTSTART", "DTEND", "UID", "STATUS"},
				},
			},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: window.Start(),
					End:   window.End(),
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query calendar: %v", calendarApp.ErrBackendUnavailable, err)
	}

	intervals := make([]calendarApp.BusyInterval, 0, len(objects))
	for i := range objects {
		if interval, ok := parseBusyInterval(&objects[i]); ok {
			intervals = append(intervals, interval)
		}
	}
	return intervals, nil
}

// CreateEvent puts a new VEVENT onto the calendar.
func (b *Backend) CreateEvent(ctx context.Context, calendarID string, draft calendarApp.EventDraft) (calendarApp.CreatedEvent, error) {
	client, err := b.getClient()
	if err != nil {
		return calendarApp.CreatedEvent{}, fmt.Errorf("%w: %v", calendarApp.ErrBackendUnavailable, err)
	}

	calPath, err := b.resolveCalendarPath(ctx, client, calendarID)
	if err != nil {
		return calendarApp.CreatedEvent{}, fmt.Errorf("%w: %v", calendarApp.ErrBackendUnavailable, err)
	}

	eventID := uuid.NewString()
	eventPath := fmt.Sprintf("%s%s.ics", calPath, eventID)

	if _, err := client.PutCalendarObject(ctx, eventPath, toICalendar(eventID, draft)); err != nil {
		return calendarApp.CreatedEvent{}, fmt.Errorf("%w: put event: %v", calendarApp.ErrBackendUnavailable, err)
	}

	b.logger.InfoContext(ctx, "caldav event created", "event_path", eventPath)
	return calendarApp.CreatedEvent{ID: eventID}, nil
}

func (b *Backend) getClient() (*caldav.Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, b.username, b.password), b.baseURL)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}
	return client, nil
}

// resolveCalendarPath prefers an explicit configuration, then a non-empty
// calendarID, then the server's first calendar.
func (b *Backend) resolveCalendarPath(ctx context.Context, client *caldav.Client, calendarID string) (string, error) {
	if b.calendarPath != "" {
		return b.calendarPath, nil
	}
	if calendarID != "" && calendarID != "primary" {
		return calendarID, nil
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find calendar home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	if len(cals) == 0 {
		return "", fmt.Errorf("no calendars found")
	}
	return cals[0].Path, nil
}

// parseBusyInterval extracts start/end from the first VEVENT. Cancelled
// events do not block the calendar.
func parseBusyInterval(obj *caldav.CalendarObject) (calendarApp.BusyInterval, bool) {
	if obj == nil || obj.Data == nil {
		return calendarApp.BusyInterval{}, false
	}

	for _, child := range obj.Data.Children {
		if child.Name != ical.CompEvent {
			continue
		}

		if props := child.Props[ical.PropStatus]; len(props) > 0 && props[0].Value == "CANCELLED" {
			return calendarApp.BusyInterval{}, false
		}

		interval := calendarApp.BusyInterval{}
		if props := child.Props[ical.PropSummary]; len(props) > 0 {
			interval.Summary = props[0].Value
		}

		icalEvent := &ical.Event{Component: child}
		start, err := icalEvent.DateTimeStart(time.UTC)
		if err != nil {
			return calendarApp.BusyInterval{}, false
		}
		end, err := icalEvent.DateTimeEnd(time.UTC)
		if err != nil {
			return calendarApp.BusyInterval{}, false
		}
		interval.Start = start
		interval.End = end
		return interval, true
	}
	return calendarApp.BusyInterval{}, false
}

// toICalendar builds the VCALENDAR payload for an event draft.
func toICalendar(eventID string, draft calendarApp.EventDraft) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//Tempora//Scheduling//EN")

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, eventID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, draft.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, draft.End.UTC())
	event.Props.SetText(ical.PropSummary, draft.Title)
	if draft.Description != "" {
		event.Props.SetText(ical.PropDescription, draft.Description)
	}
	if draft.Location != "" {
		event.Props.SetText(ical.PropLocation, draft.Location)
	}
	for _, attendee := range draft.Attendees {
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = "mailto:" + attendee
		event.Props.Add(prop)
	}

	temporaProp := ical.NewProp(PropXTempora)
	temporaProp.Value = "1"
	event.Props[PropXTempora] = []ical.Prop{*temporaProp}

	cal.Children = append(cal.Children, event.Component)
	return cal
}
