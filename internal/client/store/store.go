// Package store is the local durable store of the client: expenses, chat
// messages, the offline action queue and credential metadata, all kept in
// one SQLite file. Every write is atomic per record and RemoveActions is
// atomic for the whole batch.
//
// Driver failures are returned wrapped in common.ErrStorageUnavailable.
// A missing record is reported as common.ErrorNotFound.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/migrations"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/repositories/chatmessages"
	"github.com/dmitrijs2005/fintrack/internal/client/repositories/expenses"
	"github.com/dmitrijs2005/fintrack/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fintrack/internal/client/repositories/queue"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/filex"
	"github.com/dmitrijs2005/fintrack/internal/logging"

	_ "modernc.org/sqlite"
)

const memoryDSN = ":memory:"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies
// migrations, logging their progress to logger. Use ":memory:" for a
// throwaway store.
func Open(ctx context.Context, path string, logger logging.Logger) (*Store, error) {
	dsn := path
	if path != memoryDSN {
		abs, err := filex.EnsureParentDir(path)
		if err != nil {
			return nil, wrap(err)
		}
		dsn = abs
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrap(err)
	}
	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, wrap(err)
	}
	if err := migrations.Up(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, wrap(fmt.Errorf("migrate: %w", err))
	}

	return New(db), nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func wrap(err error) error {
	if err == nil || errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
}

func (s *Store) expenses(db dbx.DBTX) expenses.Repository {
	return expenses.NewSQLiteRepository(db)
}

func (s *Store) chatMessages(db dbx.DBTX) chatmessages.Repository {
	return chatmessages.NewSQLiteRepository(db)
}

func (s *Store) queue(db dbx.DBTX) queue.Repository {
	return queue.NewSQLiteRepository(db)
}

func (s *Store) metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (s *Store) PutExpense(ctx context.Context, e *models.Expense) error {
	return wrap(s.expenses(s.db).Put(ctx, e))
}

func (s *Store) GetAllExpenses(ctx context.Context, ownerID string) ([]models.Expense, error) {
	r, err := s.expenses(s.db).GetAll(ctx, ownerID)
	return r, wrap(err)
}

func (s *Store) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	r, err := s.expenses(s.db).GetByID(ctx, id)
	return r, wrap(err)
}

func (s *Store) GetPendingExpenses(ctx context.Context, ownerID string) ([]models.Expense, error) {
	r, err := s.expenses(s.db).GetPending(ctx, ownerID)
	return r, wrap(err)
}

func (s *Store) MarkExpenseSynced(ctx context.Context, id, serverID string) error {
	return wrap(s.expenses(s.db).MarkSynced(ctx, id, serverID))
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return wrap(s.expenses(s.db).Delete(ctx, id))
}

// DeleteExpenseAndEnqueue removes the local row and queues the remote
// delete in one transaction.
func (s *Store) DeleteExpenseAndEnqueue(ctx context.Context, id string, a models.QueuedAction) (int64, error) {
	var qid int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.expenses(tx).Delete(ctx, id); err != nil {
			return err
		}
		var err error
		qid, err = s.queue(tx).Enqueue(ctx, a)
		return err
	})
	return qid, wrap(err)
}

// PutExpenseAndEnqueue writes the local row and queues the remote update in
// one transaction.
func (s *Store) PutExpenseAndEnqueue(ctx context.Context, e *models.Expense, a models.QueuedAction) (int64, error) {
	var qid int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.expenses(tx).Put(ctx, e); err != nil {
			return err
		}
		var err error
		qid, err = s.queue(tx).Enqueue(ctx, a)
		return err
	})
	return qid, wrap(err)
}

func (s *Store) PutChatMessage(ctx context.Context, m *models.ChatMessage) error {
	return wrap(s.chatMessages(s.db).Put(ctx, m))
}

// GetChatMessages returns the conversation of userID ordered by timestamp.
func (s *Store) GetChatMessages(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	r, err := s.chatMessages(s.db).List(ctx, userID)
	return r, wrap(err)
}

// GetPendingChatMessages returns what authorID wrote on this device and
// still has to be sent.
func (s *Store) GetPendingChatMessages(ctx context.Context, authorID string) ([]models.ChatMessage, error) {
	r, err := s.chatMessages(s.db).GetPending(ctx, authorID)
	return r, wrap(err)
}

func (s *Store) MarkChatMessageSynced(ctx context.Context, id, serverID, sessionID string) error {
	return wrap(s.chatMessages(s.db).MarkSynced(ctx, id, serverID, sessionID))
}

func (s *Store) RejectChatMessage(ctx context.Context, id, reason string) error {
	return wrap(s.chatMessages(s.db).Reject(ctx, id, reason))
}

func (s *Store) EnqueueAction(ctx context.Context, a models.QueuedAction) (int64, error) {
	id, err := s.queue(s.db).Enqueue(ctx, a)
	return id, wrap(err)
}

// DrainQueue reads the actions of ownerID in FIFO order without removing
// anything.
func (s *Store) DrainQueue(ctx context.Context, ownerID string) ([]models.QueuedAction, error) {
	r, err := s.queue(s.db).List(ctx, ownerID)
	return r, wrap(err)
}

// RemoveActions removes all ids or none.
func (s *Store) RemoveActions(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return wrap(dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.queue(tx).Remove(ctx, ids...)
	}))
}

func (s *Store) ClearQueue(ctx context.Context) error {
	return wrap(s.queue(s.db).Clear(ctx))
}

// DeadLetter moves a from the queue to the dead letter table.
func (s *Store) DeadLetter(ctx context.Context, a models.QueuedAction, reason string) error {
	return wrap(dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.queue(tx).AddDeadLetter(ctx, a, reason, s.now().UnixMilli()); err != nil {
			return err
		}
		return s.queue(tx).Remove(ctx, a.ID)
	}))
}

func (s *Store) DeadLetters(ctx context.Context, ownerID string) ([]models.DeadLetter, error) {
	r, err := s.queue(s.db).DeadLetters(ctx, ownerID)
	return r, wrap(err)
}
