package persistence

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedApplication "github.com/felixgeelhaar/tempora/internal/shared/application"
)

var _ sharedApplication.UnitOfWork = (*PgxUnitOfWork)(nil)

// stubTx counts commit and rollback calls; every other pgx.Tx method panics
// through the embedded nil interface.
type stubTx struct {
	pgx.Tx
	commits   int
	rollbacks int
}

func (t *stubTx) Commit(context.Context) error   { t.commits++; return nil }
func (t *stubTx) Rollback(context.Context) error { t.rollbacks++; return nil }

func TestPgxUnitOfWork_NestedBeginDoesNotOwn(t *testing.T) {
	uow := NewPgxUnitOfWork(nil)
	tx := &stubTx{}
	outer := WithTx(context.Background(), tx, true)

	inner, err := uow.Begin(outer)
	require.NoError(t, err)

	info, ok := TxInfoFromContext(inner)
	require.True(t, ok)
	assert.False(t, info.Owned)

	// The nested unit neither commits nor rolls back the outer transaction.
	require.NoError(t, uow.Commit(inner))
	require.NoError(t, uow.Rollback(inner))
	assert.Zero(t, tx.commits)
	assert.Zero(t, tx.rollbacks)
}

func TestPgxUnitOfWork_NoTransactionInContext(t *testing.T) {
	uow := NewPgxUnitOfWork(nil)

	assert.ErrorIs(t, uow.Commit(context.Background()), pgx.ErrTxClosed)
	assert.ErrorIs(t, uow.Rollback(context.Background()), pgx.ErrTxClosed)
}

func TestExecutor_PrefersContextTransaction(t *testing.T) {
	tx := &stubTx{}
	ctx := WithTx(context.Background(), tx, true)

	assert.Same(t, tx, Executor(ctx, nil))
}
