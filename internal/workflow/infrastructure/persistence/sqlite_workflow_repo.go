// Package persistence implements the workflow repository on SQLite.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sharedPersistence "github.com/felixgeelhaar/tempora/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/tempora/internal/workflow/domain"
	"github.com/google/uuid"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLiteWorkflowRepository persists scheduling workflows in SQLite. The
// unique index on meeting_request_id enforces one workflow per request.
type SQLiteWorkflowRepository struct {
	db *sql.DB
}

// NewSQLiteWorkflowRepository creates a new repository.
func NewSQLiteWorkflowRepository(db *sql.DB) *SQLiteWorkflowRepository {
	return &SQLiteWorkflowRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *SQLiteWorkflowRepository) getExecer(ctx context.Context) execer {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.db
}

// Save upserts the workflow.
func (r *SQLiteWorkflowRepository) Save(ctx context.Context, workflow *domain.SchedulingWorkflow) error {
	exec := r.getExecer(ctx)

	participants, err := json.Marshal(workflow.PendingParticipants())
	if err != nil {
		return fmt.Errorf("marshal pending participants: %w", err)
	}

	var nextActionAt interface{}
	if next := workflow.NextActionAt(); next != nil {
		nextActionAt = next.UTC().Format(timeLayout)
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO scheduling_workflows (
			id, meeting_request_id, workflow_type, state, retry_count,
			next_action_at, failure_reason, pending_participants,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			retry_count = excluded.retry_count,
			next_action_at = excluded.next_action_at,
			failure_reason = excluded.failure_reason,
			pending_participants = excluded.pending_participants,
			updated_at = excluded.updated_at
	`,
		workflow.ID().String(),
		workflow.MeetingRequestID().String(),
		string(workflow.Type()),
		string(workflow.State()),
		workflow.RetryCount(),
		nextActionAt,
		nullableString(workflow.FailureReason()),
		string(participants),
		workflow.CreatedAt().UTC().Format(timeLayout),
		workflow.UpdatedAt().UTC().Format(timeLayout),
	)
	return err
}

const selectWorkflow = `
	SELECT id, meeting_request_id, workflow_type, state, retry_count,
	       next_action_at, failure_reason, pending_participants,
	       created_at, updated_at
	FROM scheduling_workflows
`

// FindByID loads a workflow by its ID.
func (r *SQLiteWorkflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.SchedulingWorkflow, error) {
	exec := r.getExecer(ctx)
	row := exec.QueryRowContext(ctx, selectWorkflow+`WHERE id = ?`, id.String())
	workflow, err := scanWorkflow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrWorkflowNotFound
	}
	return workflow, err
}

// FindByMeetingRequestID loads the workflow owning a meeting request.
func (r *SQLiteWorkflowRepository) FindByMeetingRequestID(ctx context.Context, requestID uuid.UUID) (*domain.SchedulingWorkflow, error) {
	exec := r.getExecer(ctx)
	row := exec.QueryRowContext(ctx, selectWorkflow+`WHERE meeting_request_id = ?`, requestID.String())
	workflow, err := scanWorkflow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrWorkflowNotFound
	}
	return workflow, err
}

// FindDue returns awaiting workflows whose next action time has passed.
func (r *SQLiteWorkflowRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.SchedulingWorkflow, error) {
	exec := r.getExecer(ctx)
	rows, err := exec.QueryContext(ctx, selectWorkflow+`
		WHERE state = ? AND next_action_at IS NOT NULL AND next_action_at <= ?
		ORDER BY next_action_at ASC
		LIMIT ?
	`, string(domain.StateAwaitingReply), now.UTC().Format(timeLayout), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*domain.SchedulingWorkflow
	for rows.Next() {
		workflow, err := scanWorkflow(rows.Scan)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, workflow)
	}
	return workflows, rows.Err()
}

func scanWorkflow(scan func(dest ...interface{}) error) (*domain.SchedulingWorkflow, error) {
	var (
		idStr, requestIDStr, workflowType, state string
		retryCount                               int
		nextActionStr, failureReason             sql.NullString
		participantsJSON                         string
		createdStr, updatedStr                   string
	)

	if err := scan(&idStr, &requestIDStr, &workflowType, &state, &retryCount,
		&nextActionStr, &failureReason, &participantsJSON, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse workflow id: %w", err)
	}
	requestID, err := uuid.Parse(requestIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse meeting request id: %w", err)
	}

	var nextActionAt *time.Time
	if nextActionStr.Valid {
		parsed, err := time.Parse(timeLayout, nextActionStr.String)
		if err != nil {
			return nil, fmt.Errorf("parse next action time: %w", err)
		}
		nextActionAt = &parsed
	}

	var participants []string
	if err := json.Unmarshal([]byte(participantsJSON), &participants); err != nil {
		return nil, fmt.Errorf("unmarshal pending participants: %w", err)
	}

	createdAt, _ := time.Parse(timeLayout, createdStr)
	updatedAt, _ := time.Parse(timeLayout, updatedStr)

	return domain.RehydrateSchedulingWorkflow(
		id, requestID,
		domain.WorkflowType(workflowType), domain.WorkflowState(state),
		retryCount, nextActionAt, failureReason.String, participants,
		createdAt, updatedAt,
	), nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
