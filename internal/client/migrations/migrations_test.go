package migrations

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log"
	"testing"

	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUp_CreatesTables(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, Up(context.Background(), db, nil))

	for _, table := range []string{"metadata", "expenses", "chat_messages", "offline_queue", "dead_letters"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	// applying twice is a no-op
	require.NoError(t, Up(context.Background(), db, nil))
}

func TestUp_PropagatesGooseError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	err := Up(context.Background(), openMemory(t), nil)
	assert.EqualError(t, err, "boom")
}

func TestUp_AddsOwnerColumns(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, Up(context.Background(), db, nil))

	for _, c := range []struct{ table, column string }{
		{"offline_queue", "owner_id"},
		{"dead_letters", "owner_id"},
		{"chat_messages", "author_id"},
		{"chat_messages", "reject_reason"},
	} {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.column).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "%s.%s", c.table, c.column)
	}
}

func TestUp_LogsThroughLoggerNotProcessOutput(t *testing.T) {
	var std bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&std)
	t.Cleanup(func() { log.SetOutput(orig) })

	var buf bytes.Buffer
	require.NoError(t, Up(context.Background(), openMemory(t), logging.NewLogrusLogger(&buf, "debug")))

	assert.Empty(t, std.String())
	assert.Contains(t, buf.String(), "00001_init.sql")
	assert.Contains(t, buf.String(), "00002_owner_scope.sql")
	assert.Contains(t, buf.String(), `"module":"migrations"`)
}

func TestGooseLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := gooseLogger{ctx: context.Background(), logger: logging.NewLogrusLogger(&buf, "debug")}

	l.Printf("OK   %s\n", "00002_owner_scope.sql")
	l.Fatalf("failed to open %s\n", "dir")

	out := buf.String()
	assert.Contains(t, out, `"level":"debug"`)
	assert.Contains(t, out, `"msg":"OK   00002_owner_scope.sql"`)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"msg":"failed to open dir"`)
}
