package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/tempora/internal/holds/domain"
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	sharedPersistence "github.com/felixgeelhaar/tempora/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// PostgresHoldRepository persists calendar holds in PostgreSQL.
type PostgresHoldRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresHoldRepository creates a new repository.
func NewPostgresHoldRepository(pool *pgxpool.Pool) *PostgresHoldRepository {
	return &PostgresHoldRepository{pool: pool}
}

// Migrate creates the calendar_holds table if it does not exist. The gist
// exclusion constraint rejects overlapping active holds even when two
// READ COMMITTED transactions race past the NOT EXISTS check in Create.
func (r *PostgresHoldRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE EXTENSION IF NOT EXISTS btree_gist;
		CREATE TABLE IF NOT EXISTS calendar_holds (
			id UUID PRIMARY KEY,
			meeting_request_id UUID NOT NULL,
			calendar_id TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			CONSTRAINT calendar_holds_no_overlap EXCLUDE USING gist (
				calendar_id WITH =,
				tstzrange(start_time, end_time) WITH &&
			) WHERE (status IN ('pending', 'confirmed'))
		);
		CREATE INDEX IF NOT EXISTS idx_calendar_holds_calendar_status
			ON calendar_holds(calendar_id, status);
		CREATE INDEX IF NOT EXISTS idx_calendar_holds_status_expires
			ON calendar_holds(status, expires_at);
		CREATE INDEX IF NOT EXISTS idx_calendar_holds_request
			ON calendar_holds(meeting_request_id);
	`)
	if err != nil {
		return fmt.Errorf("migrate calendar_holds: %w", err)
	}
	return nil
}

// Create inserts the hold only if no pending or confirmed hold overlaps its
// interval on the same calendar. Single-statement check-and-insert keeps the
// operation atomic under concurrent writers.
func (r *PostgresHoldRepository) Create(ctx context.Context, hold *domain.CalendarHold) error {
	exec := sharedPersistence.Executor(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
		INSERT INTO calendar_holds (
			id, meeting_request_id, calendar_id, start_time, end_time,
			status, expires_at, created_at, updated_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (
			SELECT 1 FROM calendar_holds
			WHERE calendar_id = $3
			  AND status IN ('pending', 'confirmed')
			  AND start_time < $5
			  AND end_time > $4
		)
	`,
		hold.ID(),
		hold.MeetingRequestID(),
		hold.CalendarID(),
		hold.Window().Start().UTC(),
		hold.Window().End().UTC(),
		string(hold.Status()),
		hold.ExpiresAt().UTC(),
		hold.CreatedAt().UTC(),
		hold.UpdatedAt().UTC(),
	)
	if err != nil {
		if isExclusionViolation(err) {
			return domain.ErrHoldConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldConflict
	}
	return nil
}

// isExclusionViolation reports whether err is the calendar_holds_no_overlap
// constraint rejecting a concurrent overlapping insert. 23P01 is SQLSTATE
// exclusion_violation.
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

// Save updates an existing hold's status and expiry.
func (r *PostgresHoldRepository) Save(ctx context.Context, hold *domain.CalendarHold) error {
	exec := sharedPersistence.Executor(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
		UPDATE calendar_holds
		SET status = $1, expires_at = $2, updated_at = $3
		WHERE id = $4
	`,
		string(hold.Status()),
		hold.ExpiresAt().UTC(),
		hold.UpdatedAt().UTC(),
		hold.ID(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

const selectHoldPg = `
	SELECT id, meeting_request_id, calendar_id, start_time, end_time,
	       status, expires_at, created_at, updated_at
	FROM calendar_holds
`

// FindByID loads a hold by its ID.
func (r *PostgresHoldRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CalendarHold, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	row := exec.QueryRow(ctx, selectHoldPg+`WHERE id = $1`, id)
	hold, err := scanHoldPg(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrHoldNotFound
	}
	return hold, err
}

// FindByMeetingRequestID returns all holds owned by a meeting request.
func (r *PostgresHoldRepository) FindByMeetingRequestID(ctx context.Context, requestID uuid.UUID) ([]*domain.CalendarHold, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx, selectHoldPg+`WHERE meeting_request_id = $1 ORDER BY start_time ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []*domain.CalendarHold
	for rows.Next() {
		hold, err := scanHoldPg(rows.Scan)
		if err != nil {
			return nil, err
		}
		holds = append(holds, hold)
	}
	return holds, rows.Err()
}

// ExpirePending flips every pending hold past its TTL to expired.
func (r *PostgresHoldRepository) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
		UPDATE calendar_holds
		SET status = 'expired', updated_at = $1
		WHERE status = 'pending' AND expires_at <= $1
	`, now.UTC())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanHoldPg(scan func(dest ...any) error) (*domain.CalendarHold, error) {
	var (
		id, requestID      uuid.UUID
		calendarID, status string
		start, end         time.Time
		expiresAt          time.Time
		createdAt, updated time.Time
	)

	if err := scan(&id, &requestID, &calendarID, &start, &end, &status, &expiresAt, &createdAt, &updated); err != nil {
		return nil, err
	}

	window, err := sharedDomain.NewTimeWindow(start.UTC(), end.UTC(), time.UTC)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateCalendarHold(
		id, requestID, calendarID, window,
		domain.HoldStatus(status), expiresAt.UTC(), createdAt.UTC(), updated.UTC(),
	), nil
}
