// Package google implements the calendar backend against the Google
// Calendar REST API using oauth2 credentials.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	calendarApp "github.com/felixgeelhaar/tempora/internal/calendar/application"
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

type tokenSourceProvider interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// StaticTokenProvider adapts a fixed token source, used for service accounts
// and tests.
type StaticTokenProvider struct {
	Source oauth2.TokenSource
}

// TokenSource returns the fixed source.
func (p StaticTokenProvider) TokenSource(context.Context) (oauth2.TokenSource, error) {
	return p.Source, nil
}

// Backend talks to the Google Calendar API.
type Backend struct {
	tokens  tokenSourceProvider
	logger  *slog.Logger
	baseURL string
}

// NewBackend creates a Google Calendar backend.
func NewBackend(tokens tokenSourceProvider, logger *slog.Logger) *Backend {
	return NewBackendWithBaseURL(tokens, logger, defaultBaseURL)
}

// NewBackendWithBaseURL creates a backend with a custom API base URL.
func NewBackendWithBaseURL(tokens tokenSourceProvider, logger *slog.Logger, baseURL string) *Backend {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{tokens: tokens, logger: logger, baseURL: baseURL}
}

type freeBusyRequest struct {
	TimeMin string               `json:"timeMin"`
	TimeMax string               `json:"timeMax"`
	Items   []freeBusyItem       `json:"items"`
}

type freeBusyItem struct {
	ID string `json:"id"`
}

type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		} `json:"busy"`
	} `json:"calendars"`
}

// ListBusy queries the freeBusy endpoint for the window.
func (b *Backend) ListBusy(ctx context.Context, calendarID string, window sharedDomain.TimeWindow) ([]calendarApp.BusyInterval, error) {
	client, err := b.client(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(freeBusyRequest{
		TimeMin: window.Start().UTC().Format(time.RFC3339),
		TimeMax: window.End().UTC().Format(time.RFC3339),
		Items:   []freeBusyItem{{ID: calendarID}},
	})
	if err != nil {
		return nil, err
	}

	var parsed freeBusyResponse
	if err := b.doJSON(ctx, client, http.MethodPost, b.baseURL+"/freeBusy", body, &parsed); err != nil {
		return nil, err
	}

	busy := parsed.Calendars[calendarID].Busy
	intervals := make([]calendarApp.BusyInterval, 0, len(busy))
	for _, interval := range busy {
		intervals = append(intervals, calendarApp.BusyInterval{Start: interval.Start, End: interval.End})
	}
	return intervals, nil
}

type googleEvent struct {
	Summary     string           `json:"summary"`
	Description string           `json:"description,omitempty"`
	Location    string           `json:"location,omitempty"`
	Start       googleEventTime  `json:"start"`
	End         googleEventTime  `json:"end"`
	Attendees   []googleAttendee `json:"attendees,omitempty"`
}

type googleEventTime struct {
	DateTime string `json:"dateTime"`
}

type googleAttendee struct {
	Email string `json:"email"`
}

type googleEventResponse struct {
	ID string `json:"id"`
}

// CreateEvent inserts an event on the calendar.
func (b *Backend) CreateEvent(ctx context.Context, calendarID string, draft calendarApp.EventDraft) (calendarApp.CreatedEvent, error) {
	client, err := b.client(ctx)
	if err != nil {
		return calendarApp.CreatedEvent{}, err
	}

	attendees := make([]googleAttendee, 0, len(draft.Attendees))
	for _, attendee := range draft.Attendees {
		attendees = append(attendees, googleAttendee{Email: attendee})
	}

	body, err := json.Marshal(googleEvent{
		Summary:     draft.Title,
		Description: draft.Description,
		Location:    draft.Location,
		Start:       googleEventTime{DateTime: draft.Start.UTC().Format(time.RFC3339)},
		End:         googleEventTime{DateTime: draft.End.UTC().Format(time.RFC3339)},
		Attendees:   attendees,
	})
	if err != nil {
		return calendarApp.CreatedEvent{}, err
	}

	var parsed googleEventResponse
	url := fmt.Sprintf("%s/calendars/%s/events", b.baseURL, calendarID)
	if err := b.doJSON(ctx, client, http.MethodPost, url, body, &parsed); err != nil {
		return calendarApp.CreatedEvent{}, err
	}

	b.logger.InfoContext(ctx, "google event created", "calendar_id", calendarID, "event_id", parsed.ID)
	return calendarApp.CreatedEvent{ID: parsed.ID}, nil
}

func (b *Backend) client(ctx context.Context) (*http.Client, error) {
	if b.tokens == nil {
		return nil, fmt.Errorf("%w: oauth not configured", calendarApp.ErrBackendRejected)
	}
	source, err := b.tokens.TokenSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", calendarApp.ErrBackendUnavailable, err)
	}
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &oauthTransport{
			base:   http.DefaultTransport,
			source: source,
		},
	}, nil
}

func (b *Backend) doJSON(ctx context.Context, client *http.Client, method, url string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", calendarApp.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", calendarApp.ErrBackendUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", calendarApp.ErrBackendRejected, resp.StatusCode, payload)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

type oauthTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

func (t *oauthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)
	return t.base.RoundTrip(req)
}
