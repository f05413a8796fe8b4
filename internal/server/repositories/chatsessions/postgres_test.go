package chatsessions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionCols = []string{"id", "user_id", "status", "created_at", "updated_at", "closed_at"}

const (
	ensureQ = `(?s)^INSERT\s+INTO\s+chat_sessions.*ON\s+CONFLICT\s+\(user_id\)\s+WHERE\s+status\s*=\s*'active'\s+DO\s+NOTHING`
	activeQ = `(?s)^SELECT\s+id,.*FROM\s+chat_sessions\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+status\s*=\s*'active'$`
	byIDQ   = `(?s)^SELECT\s+id,.*FROM\s+chat_sessions\s+WHERE\s+id\s*=\s*\$1$`
	closeQ  = `(?s)^UPDATE\s+chat_sessions\s+SET\s+status\s*=\s*'closed'.*WHERE\s+id\s*=\s*\$1\s+AND\s+status\s*=\s*'active'`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestEnsureActive_Creates(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(ensureQ).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("s-1", "u-1", "active", now, now, nil))

	s, created, err := repo.EnsureActive(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "s-1", s.ID)
	assert.Nil(t, s.ClosedAt)
}

func TestEnsureActive_ReturnsExisting(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(ensureQ).WithArgs("u-1").WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectQuery(activeQ).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("s-0", "u-1", "active", now, now, nil))

	s, created, err := repo.EnsureActive(context.Background(), "u-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "s-0", s.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureActive_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(ensureQ).WillReturnError(errors.New("db down"))

	_, _, err := repo.EnsureActive(context.Background(), "u-1")
	assert.ErrorContains(t, err, "db error: db down")
}

func TestGetActive_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(activeQ).WithArgs("u-2").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetActive(context.Background(), "u-2")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestClose_ActiveSession(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(closeQ).WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("s-1", "u-1", "closed", now, now, now))

	s, err := repo.Close(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, common.SessionClosed, s.Status)
	require.NotNil(t, s.ClosedAt)
}

func TestClose_AlreadyClosedIsIdempotent(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(closeQ).WithArgs("s-1").WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectQuery(byIDQ).WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("s-1", "u-1", "closed", now, now, now))

	s, err := repo.Close(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, common.SessionClosed, s.Status)
}

func TestClose_Unknown(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(closeQ).WithArgs("s-x").WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectQuery(byIDQ).WithArgs("s-x").WillReturnError(sql.ErrNoRows)

	_, err := repo.Close(context.Background(), "s-x")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTouch(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`^UPDATE\s+chat_sessions\s+SET\s+updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Touch(context.Background(), "s-1"))
}

func TestListSummaries(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	cols := append(append([]string{}, sessionCols...), "name", "email", "last_message", "last_at", "unread")
	mock.ExpectQuery(`(?s)^SELECT\s+s\.id,.*LEFT\s+JOIN\s+LATERAL.*ORDER\s+BY\s+s\.updated_at\s+DESC$`).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("s-2", "u-2", "active", now, now, nil, "Bob", "b@x", "help", now, 2).
			AddRow("s-1", "u-1", "active", now, now, nil, "Ann", "a@x", "", nil, 0))

	got, err := repo.ListSummaries(context.Background(), "active")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bob", got[0].UserName)
	assert.Equal(t, 2, got[0].UnreadCount)
	require.NotNil(t, got[0].LastMessageAt)
	assert.Nil(t, got[1].LastMessageAt)
}

func TestActiveUserIDs(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`^SELECT\s+user_id\s+FROM\s+chat_sessions\s+WHERE\s+status\s*=\s*'active'$`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-1").AddRow("u-2"))

	ids, err := repo.ActiveUserIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1", "u-2"}, ids)
}
