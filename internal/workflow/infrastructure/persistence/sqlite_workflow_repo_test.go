package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tempora/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/tempora/internal/workflow/domain"
	"github.com/google/uuid"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.OpenInMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db))
	return db
}

func TestSQLiteWorkflowRepository_SaveAndFind(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteWorkflowRepository(db)
	ctx := context.Background()

	workflow, err := domain.NewSchedulingWorkflow(uuid.New(), domain.MultiRecipient, []string{"alice@example.com", "bob@example.com"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err := repo.FindByID(ctx, workflow.ID())
	require.NoError(t, err)
	assert.Equal(t, workflow.MeetingRequestID(), loaded.MeetingRequestID())
	assert.Equal(t, domain.MultiRecipient, loaded.Type())
	assert.Equal(t, domain.StateInitiated, loaded.State())
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, loaded.PendingParticipants())
	assert.Nil(t, loaded.NextActionAt())
}

func TestSQLiteWorkflowRepository_UpdatePersistsTransitions(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteWorkflowRepository(db)
	ctx := context.Background()

	workflow, err := domain.NewSchedulingWorkflow(uuid.New(), domain.DirectSchedule, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, workflow))

	deadline := time.Date(2026, time.March, 3, 15, 30, 0, 0, time.UTC)
	require.NoError(t, workflow.MarkHoldsCreated())
	require.NoError(t, workflow.MarkResponseSent())
	require.NoError(t, workflow.AwaitReply(deadline))
	workflow.RecordRetry()
	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err := repo.FindByID(ctx, workflow.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StateAwaitingReply, loaded.State())
	assert.Equal(t, 1, loaded.RetryCount())
	require.NotNil(t, loaded.NextActionAt())
	assert.True(t, loaded.NextActionAt().Equal(deadline))
}

func TestSQLiteWorkflowRepository_FindByMeetingRequestID(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteWorkflowRepository(db)
	ctx := context.Background()

	requestID := uuid.New()
	workflow, err := domain.NewSchedulingWorkflow(requestID, domain.NegotiateTime, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err := repo.FindByMeetingRequestID(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, workflow.ID(), loaded.ID())

	_, err = repo.FindByMeetingRequestID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestSQLiteWorkflowRepository_OneWorkflowPerRequest(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteWorkflowRepository(db)
	ctx := context.Background()

	requestID := uuid.New()
	first, err := domain.NewSchedulingWorkflow(requestID, domain.DirectSchedule, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	second, err := domain.NewSchedulingWorkflow(requestID, domain.DirectSchedule, nil)
	require.NoError(t, err)
	assert.Error(t, repo.Save(ctx, second))
}

func TestSQLiteWorkflowRepository_FindDue(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteWorkflowRepository(db)
	ctx := context.Background()

	now := time.Date(2026, time.March, 3, 16, 0, 0, 0, time.UTC)

	makeAwaiting := func(deadline time.Time) *domain.SchedulingWorkflow {
		w, err := domain.NewSchedulingWorkflow(uuid.New(), domain.DirectSchedule, nil)
		require.NoError(t, err)
		require.NoError(t, w.MarkHoldsCreated())
		require.NoError(t, w.MarkResponseSent())
		require.NoError(t, w.AwaitReply(deadline))
		require.NoError(t, repo.Save(ctx, w))
		return w
	}

	overdue := makeAwaiting(now.Add(-10 * time.Minute))
	moreOverdue := makeAwaiting(now.Add(-30 * time.Minute))
	makeAwaiting(now.Add(20 * time.Minute)) // not yet due

	// A workflow without an armed timer is never due.
	idle, err := domain.NewSchedulingWorkflow(uuid.New(), domain.DirectSchedule, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, idle))

	due, err := repo.FindDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	// Ordered by deadline, oldest first.
	assert.Equal(t, moreOverdue.ID(), due[0].ID())
	assert.Equal(t, overdue.ID(), due[1].ID())

	due, err = repo.FindDue(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}
