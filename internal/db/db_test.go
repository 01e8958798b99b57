package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obcms/workledger/internal/domain"
)

func TestMigrate_Idempotent(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "migrate_test.db"))
	require.NoError(t, err)
	defer database.Close()

	// OpenDB already migrated; running again must be a no-op
	require.NoError(t, Migrate(database))
	require.NoError(t, Migrate(database))

	var n int
	err = database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'
		AND name IN ('budget_envelopes', 'work_items', 'allotments', 'obligations', 'disbursements')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	database, err := OpenDB(":memory:")
	require.NoError(t, err)
	defer database.Close()
	uow := NewSQLiteUnitOfWork(database)

	boom := errors.New("boom")
	err = uow.WithinTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		_, execErr := tx.ExecContext(ctx,
			`INSERT INTO budget_envelopes (id, title, approved_amount, created_at, updated_at)
			 VALUES ('e1', 'T', 100, '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
		require.NoError(t, execErr)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM budget_envelopes`).Scan(&n))
	assert.Equal(t, 0, n, "failed transaction leaves no rows")
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	database, err := OpenDB(":memory:")
	require.NoError(t, err)
	defer database.Close()
	uow := NewSQLiteUnitOfWork(database)

	err = uow.WithinTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		_, execErr := tx.ExecContext(ctx,
			`INSERT INTO budget_envelopes (id, title, approved_amount, created_at, updated_at)
			 VALUES ('e1', 'T', 100, '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
		return execErr
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM budget_envelopes`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestWithinTx_DoesNotRetryPermanentErrors(t *testing.T) {
	database, err := OpenDB(":memory:")
	require.NoError(t, err)
	defer database.Close()
	uow := NewSQLiteUnitOfWork(database)

	attempts := 0
	err = uow.WithinTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		attempts++
		return domain.ErrInvalidAmount(-1)
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.False(t, errors.Is(err, domain.ErrConcurrencyConflict))
}

func TestIsBusy(t *testing.T) {
	assert.False(t, isBusy(nil))
	assert.False(t, isBusy(errors.New("UNIQUE constraint failed")))
	assert.True(t, isBusy(errors.New("SQLITE_BUSY (5): database is locked")))
	assert.True(t, isBusy(errors.New("database table is locked")))
}
