package outbox

import (
	"context"
	"database/sql"
	"time"

	sharedPersistence "github.com/felixgeelhaar/tempora/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLiteRepository stores outbox messages in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite outbox repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (r *SQLiteRepository) getExecer(ctx context.Context) execer {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.db
}

// Save stores a new outbox message.
func (r *SQLiteRepository) Save(ctx context.Context, msg *Message) error {
	exec := r.getExecer(ctx)
	query := `
		INSERT INTO outbox_messages (
			event_id, aggregate_type, aggregate_id, event_type, routing_key,
			payload, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := exec.ExecContext(ctx, query,
		msg.EventID.String(),
		msg.AggregateType,
		msg.AggregateID.String(),
		msg.EventType,
		msg.RoutingKey,
		string(msg.Payload),
		string(msg.Metadata),
		msg.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// SaveBatch stores multiple outbox messages. Callers run this inside a unit
// of work, so the batch shares the aggregate's transaction.
func (r *SQLiteRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	for _, msg := range msgs {
		if err := r.Save(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// GetUnpublished retrieves unpublished messages ordered by creation time.
func (r *SQLiteRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	exec := r.getExecer(ctx)
	query := `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
		       payload, metadata, created_at, retry_count, last_error
		FROM outbox_messages
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT ?
	`
	rows, err := exec.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var msg Message
		var eventIDStr, aggregateIDStr, createdAtStr, payload, metadata string
		var lastError sql.NullString

		if err := rows.Scan(
			&msg.ID,
			&eventIDStr,
			&msg.AggregateType,
			&aggregateIDStr,
			&msg.EventType,
			&msg.RoutingKey,
			&payload,
			&metadata,
			&createdAtStr,
			&msg.RetryCount,
			&lastError,
		); err != nil {
			return nil, err
		}

		msg.EventID, _ = uuid.Parse(eventIDStr)
		msg.AggregateID, _ = uuid.Parse(aggregateIDStr)
		msg.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		msg.Payload = []byte(payload)
		msg.Metadata = []byte(metadata)
		if lastError.Valid {
			msg.LastError = &lastError.String
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

// MarkPublished marks a message as successfully published.
func (r *SQLiteRepository) MarkPublished(ctx context.Context, id int64) error {
	exec := r.getExecer(ctx)
	_, err := exec.ExecContext(ctx,
		`UPDATE outbox_messages SET published_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	return err
}

// MarkFailed records a publish failure with error message.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	exec := r.getExecer(ctx)
	_, err := exec.ExecContext(ctx,
		`UPDATE outbox_messages SET retry_count = retry_count + 1, last_error = ? WHERE id = ?`,
		errMsg, id,
	)
	return err
}
