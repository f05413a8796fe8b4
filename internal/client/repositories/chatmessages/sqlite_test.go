package chatmessages

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/fintrack/internal/client/migrations"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/common"
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

func TestListOrderedByTimestamp(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, &models.ChatMessage{ID: "m2", UserID: "u1", Message: "second", Timestamp: 20}))
	require.NoError(t, r.Put(ctx, &models.ChatMessage{ID: "m1", UserID: "u1", Message: "first", Timestamp: 10}))
	require.NoError(t, r.Put(ctx, &models.ChatMessage{ID: "x", UserID: "u2", Message: "other", Timestamp: 5}))

	got, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
}

func TestPendingAndMarkSynced(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, &models.ChatMessage{ID: "m1", UserID: "u1", AuthorID: "op", Message: "a", Timestamp: 1}))
	require.NoError(t, r.Put(ctx, &models.ChatMessage{ID: "m2", UserID: "u2", AuthorID: "op", Message: "b", Timestamp: 2, IsAdmin: true}))

	pending, err := r.GetPending(ctx, "op")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.True(t, pending[1].IsAdmin)

	require.NoError(t, r.MarkSynced(ctx, "m1", "srv1", "sess1"))

	pending, err = r.GetPending(ctx, "op")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "m2", pending[0].ID)

	got, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "srv1", got[0].ServerID)
	assert.Equal(t, "sess1", got[0].SessionID)
	assert.True(t, got[0].Synced)
}

func TestMarkSynced_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	err := r.MarkSynced(context.Background(), "ghost", "srv", "")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPut_EchoDoesNotDuplicateOrRegress(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	local := &models.ChatMessage{ID: "m1", UserID: "u1", Message: "hi", Timestamp: 1}
	require.NoError(t, r.Put(ctx, local))

	echo := &models.ChatMessage{ID: "m1", ServerID: "srv1", SessionID: "s", UserID: "u1", Message: "hi", Timestamp: 1, Synced: true}
	require.NoError(t, r.Put(ctx, echo))

	// a stale pending write must not clear the server id
	require.NoError(t, r.Put(ctx, local))

	got, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "srv1", got[0].ServerID)
	assert.True(t, got[0].Synced)
}

func TestGetPending_ScopedToAuthor(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, &models.ChatMessage{ID: "a1", UserID: "alice", AuthorID: "alice", Message: "mine", Timestamp: 1}))
	require.NoError(t, r.Put(ctx, &models.ChatMessage{ID: "b1", UserID: "bob", AuthorID: "bob", Message: "his", Timestamp: 2}))
	require.NoError(t, r.Put(ctx, &models.ChatMessage{ID: "r1", UserID: "alice", Message: "received", Timestamp: 3}))

	pending, err := r.GetPending(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b1", pending[0].ID)
	assert.Equal(t, "bob", pending[0].AuthorID)

	pending, err = r.GetPending(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReject(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, &models.ChatMessage{ID: "m1", UserID: "u1", AuthorID: "u1", Message: "bad", Timestamp: 1}))
	require.NoError(t, r.Put(ctx, &models.ChatMessage{ID: "m2", UserID: "u1", AuthorID: "u1", Message: "good", Timestamp: 2}))

	require.NoError(t, r.Reject(ctx, "m1", "message too long"))

	pending, err := r.GetPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "m2", pending[0].ID)

	// a later local write of the same row does not revive it
	require.NoError(t, r.Put(ctx, &models.ChatMessage{ID: "m1", UserID: "u1", AuthorID: "u1", Message: "bad", Timestamp: 1}))

	got, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "message too long", got[0].RejectReason)
	assert.False(t, got[0].Synced)

	require.ErrorIs(t, r.Reject(ctx, "ghost", "x"), common.ErrorNotFound)
}
