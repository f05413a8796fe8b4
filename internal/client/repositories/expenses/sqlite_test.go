package expenses

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/fintrack/internal/client/migrations"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db, nil))
	return db
}

func expense(id, owner, amount, date string, modified int64) *models.Expense {
	return &models.Expense{
		ID:           id,
		OwnerID:      owner,
		Amount:       decimal.RequireFromString(amount),
		Category:     "food",
		Description:  "lunch",
		Date:         date,
		LastModified: modified,
	}
}

func TestPut_InsertThenUpdate(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := expense("l1", "u1", "12.30", "2026-03-01", 1)
	require.NoError(t, r.Put(ctx, e))

	e.Amount = decimal.RequireFromString("15")
	e.Category = "travel"
	e.LastModified = 2
	require.NoError(t, r.Put(ctx, e))

	got, err := r.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("15").Equal(got.Amount))
	assert.Equal(t, "travel", got.Category)
	assert.Equal(t, int64(2), got.LastModified)
	assert.False(t, got.Synced)

	all, err := r.GetAll(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetByID_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.GetByID(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetAll_ScopedToOwnerAndOrdered(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, expense("a", "u1", "1", "2026-01-01", 1)))
	require.NoError(t, r.Put(ctx, expense("b", "u1", "2", "2026-02-01", 2)))
	require.NoError(t, r.Put(ctx, expense("c", "u2", "3", "2026-03-01", 3)))

	all, err := r.GetAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
}

func TestPendingAndMarkSynced(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, expense("a", "u1", "1", "2026-01-01", 5)))
	require.NoError(t, r.Put(ctx, expense("b", "u1", "2", "2026-01-02", 3)))

	pending, err := r.GetPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "b", pending[0].ID)

	require.NoError(t, r.MarkSynced(ctx, "b", "srv-b"))

	pending, err = r.GetPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)

	got, err := r.GetByID(ctx, "b")
	require.NoError(t, err)
	assert.True(t, got.Synced)
	assert.Equal(t, "srv-b", got.ServerID)

	all, err := r.GetAll(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 2, "synced row is updated in place")
}

func TestMarkSynced_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	err := r.MarkSynced(context.Background(), "ghost", "srv")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, expense("a", "u1", "1", "2026-01-01", 1)))
	require.NoError(t, r.Delete(ctx, "a"))
	require.NoError(t, r.Delete(ctx, "a"))

	_, err := r.GetByID(ctx, "a")
	require.ErrorIs(t, err, common.ErrorNotFound)
}
