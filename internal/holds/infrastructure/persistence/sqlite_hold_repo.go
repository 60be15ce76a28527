// Package persistence implements the hold repository on SQLite and
// PostgreSQL. Both back the same atomic create contract.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/felixgeelhaar/tempora/internal/holds/domain"
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	sharedPersistence "github.com/felixgeelhaar/tempora/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// timeLayout is fixed-width UTC so lexicographic comparison in SQL matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timeLayout)
}

// SQLiteHoldRepository persists calendar holds in SQLite.
type SQLiteHoldRepository struct {
	db *sql.DB
}

// NewSQLiteHoldRepository creates a new repository.
func NewSQLiteHoldRepository(db *sql.DB) *SQLiteHoldRepository {
	return &SQLiteHoldRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *SQLiteHoldRepository) getExecer(ctx context.Context) execer {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.db
}

// Create inserts the hold only if no pending or confirmed hold overlaps its
// interval on the same calendar. Check and insert run as one statement, so
// concurrent creates for overlapping intervals cannot both succeed.
func (r *SQLiteHoldRepository) Create(ctx context.Context, hold *domain.CalendarHold) error {
	exec := r.getExecer(ctx)
	query := `
		INSERT INTO calendar_holds (
			id, meeting_request_id, calendar_id, start_time, end_time,
			status, expires_at, created_at, updated_at
		)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM calendar_holds
			WHERE calendar_id = ?
			  AND status IN ('pending', 'confirmed')
			  AND start_time < ?
			  AND end_time > ?
		)
	`
	start := formatTime(hold.Window().Start())
	end := formatTime(hold.Window().End())

	result, err := exec.ExecContext(ctx, query,
		hold.ID().String(),
		hold.MeetingRequestID().String(),
		hold.CalendarID(),
		start,
		end,
		string(hold.Status()),
		formatTime(hold.ExpiresAt()),
		formatTime(hold.CreatedAt()),
		formatTime(hold.UpdatedAt()),
		hold.CalendarID(),
		end,
		start,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrHoldConflict
	}
	return nil
}

// Save updates an existing hold's status and expiry.
func (r *SQLiteHoldRepository) Save(ctx context.Context, hold *domain.CalendarHold) error {
	exec := r.getExecer(ctx)
	result, err := exec.ExecContext(ctx, `
		UPDATE calendar_holds
		SET status = ?, expires_at = ?, updated_at = ?
		WHERE id = ?
	`,
		string(hold.Status()),
		formatTime(hold.ExpiresAt()),
		formatTime(hold.UpdatedAt()),
		hold.ID().String(),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

const selectHold = `
	SELECT id, meeting_request_id, calendar_id, start_time, end_time,
	       status, expires_at, created_at, updated_at
	FROM calendar_holds
`

// FindByID loads a hold by its ID.
func (r *SQLiteHoldRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CalendarHold, error) {
	exec := r.getExecer(ctx)
	row := exec.QueryRowContext(ctx, selectHold+`WHERE id = ?`, id.String())
	hold, err := scanHold(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrHoldNotFound
	}
	return hold, err
}

// FindByMeetingRequestID returns all holds owned by a meeting request.
func (r *SQLiteHoldRepository) FindByMeetingRequestID(ctx context.Context, requestID uuid.UUID) ([]*domain.CalendarHold, error) {
	exec := r.getExecer(ctx)
	rows, err := exec.QueryContext(ctx, selectHold+`WHERE meeting_request_id = ? ORDER BY start_time ASC`, requestID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []*domain.CalendarHold
	for rows.Next() {
		hold, err := scanHold(rows.Scan)
		if err != nil {
			return nil, err
		}
		holds = append(holds, hold)
	}
	return holds, rows.Err()
}

// ExpirePending flips every pending hold past its TTL to expired and returns
// how many were swept. The update acts only on the time predicate, so it is
// safe to run concurrently with any other operation.
func (r *SQLiteHoldRepository) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	exec := r.getExecer(ctx)
	result, err := exec.ExecContext(ctx, `
		UPDATE calendar_holds
		SET status = 'expired', updated_at = ?
		WHERE status = 'pending' AND expires_at <= ?
	`, formatTime(now), formatTime(now))
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func scanHold(scan func(dest ...interface{}) error) (*domain.CalendarHold, error) {
	var (
		idStr, requestIDStr, calendarID, status string
		startStr, endStr, expiresStr            string
		createdStr, updatedStr                  string
	)

	if err := scan(&idStr, &requestIDStr, &calendarID, &startStr, &endStr, &status, &expiresStr, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse hold id: %w", err)
	}
	requestID, err := uuid.Parse(requestIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse meeting request id: %w", err)
	}

	start, err := time.Parse(timeLayout, startStr)
	if err != nil {
		return nil, fmt.Errorf("parse start time: %w", err)
	}
	end, err := time.Parse(timeLayout, endStr)
	if err != nil {
		return nil, fmt.Errorf("parse end time: %w", err)
	}
	window, err := sharedDomain.NewTimeWindow(start, end, time.UTC)
	if err != nil {
		return nil, err
	}

	expiresAt, _ := time.Parse(timeLayout, expiresStr)
	createdAt, _ := time.Parse(timeLayout, createdStr)
	updatedAt, _ := time.Parse(timeLayout, updatedStr)

	return domain.RehydrateCalendarHold(
		id, requestID, calendarID, window,
		domain.HoldStatus(status), expiresAt, createdAt, updatedAt,
	), nil
}
