package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tempora/internal/extraction/domain"
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/felixgeelhaar/tempora/internal/shared/infrastructure/database/sqlite"
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

func newStoredRequest(t *testing.T) *domain.MeetingRequest {
	t.Helper()
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	window, err := sharedDomain.NewTimeWindow(
		time.Date(2026, time.March, 3, 14, 0, 0, 0, newYork),
		time.Date(2026, time.March, 3, 15, 0, 0, 0, newYork),
		newYork,
	)
	require.NoError(t, err)

	request, err := domain.NewMeetingRequest(
		"msg-42", "alice@example.com", "Sync",
		domain.MeetingTypeRegular, 45,
		[]sharedDomain.TimeWindow{window},
		[]string{"alice@example.com", "bob@example.com"},
		"video", domain.UrgencyMedium, 85,
	)
	require.NoError(t, err)
	return request
}

func TestSQLiteRequestRepository_SaveAndFind(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRequestRepository(db)
	ctx := context.Background()

	request := newStoredRequest(t)
	require.NoError(t, repo.Save(ctx, request))

	loaded, err := repo.FindByID(ctx, request.ID())
	require.NoError(t, err)

	assert.Equal(t, request.ID(), loaded.ID())
	assert.Equal(t, "msg-42", loaded.SourceMessageID())
	assert.Equal(t, 45, loaded.DurationMinutes())
	assert.Equal(t, domain.StatusPending, loaded.Status())
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, loaded.Attendees())

	windows := loaded.PreferredWindows()
	require.Len(t, windows, 1)
	assert.True(t, windows[0].Start().Equal(request.PreferredWindows()[0].Start()))
	assert.Equal(t, "America/New_York", windows[0].Timezone().String())
}

func TestSQLiteRequestRepository_UpdatePersistsStatus(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRequestRepository(db)
	ctx := context.Background()

	request := newStoredRequest(t)
	require.NoError(t, repo.Save(ctx, request))

	require.NoError(t, request.StartNegotiation())
	require.NoError(t, repo.Save(ctx, request))

	loaded, err := repo.FindByID(ctx, request.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNegotiating, loaded.Status())
}

func TestSQLiteRequestRepository_FindBySourceMessageID(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRequestRepository(db)
	ctx := context.Background()

	request := newStoredRequest(t)
	require.NoError(t, repo.Save(ctx, request))

	loaded, err := repo.FindBySourceMessageID(ctx, "msg-42")
	require.NoError(t, err)
	assert.Equal(t, request.ID(), loaded.ID())
}

func TestSQLiteRequestRepository_NotFound(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRequestRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestSQLiteRequestRepository_FindByStatus(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRequestRepository(db)
	ctx := context.Background()

	first := newStoredRequest(t)
	require.NoError(t, repo.Save(ctx, first))

	second, err := domain.NewMeetingRequest(
		"msg-43", "carol@example.com", "Planning",
		domain.MeetingTypeRecurring, 60, nil, nil, "",
		domain.UrgencyLow, 70,
	)
	require.NoError(t, err)
	require.NoError(t, second.Cancel("sender withdrew"))
	require.NoError(t, repo.Save(ctx, second))

	pending, err := repo.FindByStatus(ctx, domain.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID(), pending[0].ID())
}
