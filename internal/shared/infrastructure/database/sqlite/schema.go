package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is applied idempotently at startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS meeting_requests (
		id TEXT PRIMARY KEY,
		source_message_id TEXT NOT NULL,
		sender TEXT NOT NULL,
		subject TEXT NOT NULL,
		meeting_type TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		preferred_windows TEXT NOT NULL,
		attendees TEXT NOT NULL,
		location_preference TEXT,
		urgency TEXT NOT NULL,
		detection_confidence INTEGER NOT NULL,
		status TEXT NOT NULL,
		status_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meeting_requests_status ON meeting_requests(status)`,
	`CREATE TABLE IF NOT EXISTS calendar_holds (
		id TEXT PRIMARY KEY,
		meeting_request_id TEXT NOT NULL,
		calendar_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_calendar_holds_calendar ON calendar_holds(calendar_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_calendar_holds_request ON calendar_holds(meeting_request_id)`,
	`CREATE INDEX IF NOT EXISTS idx_calendar_holds_expiry ON calendar_holds(status, expires_at)`,
	`CREATE TABLE IF NOT EXISTS scheduling_workflows (
		id TEXT PRIMARY KEY,
		meeting_request_id TEXT NOT NULL UNIQUE,
		workflow_type TEXT NOT NULL,
		state TEXT NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		next_action_at TEXT,
		failure_reason TEXT,
		pending_participants TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_workflows_state ON scheduling_workflows(state)`,
	`CREATE INDEX IF NOT EXISTS idx_workflows_next_action ON scheduling_workflows(state, next_action_at)`,
	`CREATE TABLE IF NOT EXISTS outbox_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL UNIQUE,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		routing_key TEXT NOT NULL,
		payload TEXT NOT NULL,
		metadata TEXT NOT NULL,
		created_at TEXT NOT NULL,
		published_at TEXT,
		retry_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_unpublished ON outbox_messages(published_at) WHERE published_at IS NULL`,
}

// Migrate applies the schema. Statements are idempotent, so repeated startup
// is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i, err)
		}
	}
	return nil
}
