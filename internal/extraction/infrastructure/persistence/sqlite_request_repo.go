// Package persistence implements the meeting request repository on SQLite.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/tempora/internal/extraction/domain"
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	sharedPersistence "github.com/felixgeelhaar/tempora/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLiteRequestRepository persists meeting requests in SQLite.
type SQLiteRequestRepository struct {
	db *sql.DB
}

// NewSQLiteRequestRepository creates a new repository.
func NewSQLiteRequestRepository(db *sql.DB) *SQLiteRequestRepository {
	return &SQLiteRequestRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *SQLiteRequestRepository) getExecer(ctx context.Context) execer {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.db
}

// windowRecord is the JSON shape of one preferred window.
type windowRecord struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Timezone string    `json:"timezone"`
}

func encodeWindows(windows []sharedDomain.TimeWindow) (string, error) {
	records := make([]windowRecord, 0, len(windows))
	for _, w := range windows {
		records = append(records, windowRecord{
			Start:    w.Start(),
			End:      w.End(),
			Timezone: w.Timezone().String(),
		})
	}
	data, err := json.Marshal(records)
	return string(data), err
}

func decodeWindows(data string) ([]sharedDomain.TimeWindow, error) {
	var records []windowRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, err
	}
	windows := make([]sharedDomain.TimeWindow, 0, len(records))
	for _, record := range records {
		loc, err := time.LoadLocation(record.Timezone)
		if err != nil {
			loc = time.UTC
		}
		window, err := sharedDomain.NewTimeWindow(record.Start, record.End, loc)
		if err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}
	return windows, nil
}

// Save inserts or updates a meeting request.
func (r *SQLiteRequestRepository) Save(ctx context.Context, request *domain.MeetingRequest) error {
	windows, err := encodeWindows(request.PreferredWindows())
	if err != nil {
		return fmt.Errorf("encode preferred windows: %w", err)
	}
	attendees, err := json.Marshal(request.Attendees())
	if err != nil {
		return fmt.Errorf("encode attendees: %w", err)
	}

	exec := r.getExecer(ctx)
	query := `
		INSERT INTO meeting_requests (
			id, source_message_id, sender, subject, meeting_type,
			duration_minutes, preferred_windows, attendees, location_preference,
			urgency, detection_confidence, status, status_reason,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			meeting_type = excluded.meeting_type,
			duration_minutes = excluded.duration_minutes,
			preferred_windows = excluded.preferred_windows,
			attendees = excluded.attendees,
			location_preference = excluded.location_preference,
			urgency = excluded.urgency,
			status = excluded.status,
			status_reason = excluded.status_reason,
			updated_at = excluded.updated_at
	`
	_, err = exec.ExecContext(ctx, query,
		request.ID().String(),
		request.SourceMessageID(),
		request.Sender(),
		request.Subject(),
		string(request.MeetingType()),
		request.DurationMinutes(),
		windows,
		string(attendees),
		request.LocationPreference(),
		string(request.Urgency()),
		request.DetectionConfidence(),
		string(request.Status()),
		request.StatusReason(),
		request.CreatedAt().UTC().Format(time.RFC3339Nano),
		request.UpdatedAt().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// FindByID loads a meeting request by its ID.
func (r *SQLiteRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.MeetingRequest, error) {
	return r.findOne(ctx, `WHERE id = ?`, id.String())
}

// FindBySourceMessageID loads the request detected from a given message.
func (r *SQLiteRequestRepository) FindBySourceMessageID(ctx context.Context, sourceMessageID string) (*domain.MeetingRequest, error) {
	return r.findOne(ctx, `WHERE source_message_id = ?`, sourceMessageID)
}

const selectColumns = `
	SELECT id, source_message_id, sender, subject, meeting_type,
	       duration_minutes, preferred_windows, attendees, location_preference,
	       urgency, detection_confidence, status, status_reason,
	       created_at, updated_at
	FROM meeting_requests
`

func (r *SQLiteRequestRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.MeetingRequest, error) {
	exec := r.getExecer(ctx)
	row := exec.QueryRowContext(ctx, selectColumns+where, arg)
	request, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRequestNotFound
	}
	return request, err
}

// FindByStatus lists requests in a given status ordered by creation time.
func (r *SQLiteRequestRepository) FindByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.MeetingRequest, error) {
	exec := r.getExecer(ctx)
	rows, err := exec.QueryContext(ctx, selectColumns+`WHERE status = ? ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.MeetingRequest
	for rows.Next() {
		request, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func scanRequest(scan func(dest ...interface{}) error) (*domain.MeetingRequest, error) {
	var (
		idStr, source, sender, subject, meetingType   string
		windowsJSON, attendeesJSON, urgency, status   string
		locationPref, statusReason                    sql.NullString
		durationMinutes, confidence                   int
		createdAtStr, updatedAtStr                    string
	)

	if err := scan(
		&idStr, &source, &sender, &subject, &meetingType,
		&durationMinutes, &windowsJSON, &attendeesJSON, &locationPref,
		&urgency, &confidence, &status, &statusReason,
		&createdAtStr, &updatedAtStr,
	); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse request id: %w", err)
	}
	windows, err := decodeWindows(windowsJSON)
	if err != nil {
		return nil, fmt.Errorf("decode preferred windows: %w", err)
	}
	var attendees []string
	if err := json.Unmarshal([]byte(attendeesJSON), &attendees); err != nil {
		return nil, fmt.Errorf("decode attendees: %w", err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, createdAtStr)
	updatedAt, _ := time.Parse(time.RFC3339Nano, updatedAtStr)

	return domain.RehydrateMeetingRequest(
		id, source, sender, subject,
		domain.MeetingType(meetingType), durationMinutes, windows, attendees,
		locationPref.String, domain.UrgencyLevel(urgency), confidence,
		domain.RequestStatus(status), statusReason.String,
		createdAt, updatedAt,
	), nil
}
