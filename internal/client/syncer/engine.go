// Package syncer pushes locally recorded changes of the signed-in user to
// the server: pending expenses in idempotent batches, pending chat messages
// one by one and then the offline action queue in FIFO order.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/logging"
)

type Store interface {
	GetPendingExpenses(ctx context.Context, ownerID string) ([]models.Expense, error)
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	MarkExpenseSynced(ctx context.Context, id, serverID string) error
	GetPendingChatMessages(ctx context.Context, authorID string) ([]models.ChatMessage, error)
	MarkChatMessageSynced(ctx context.Context, id, serverID, sessionID string) error
	RejectChatMessage(ctx context.Context, id, reason string) error
	DrainQueue(ctx context.Context, ownerID string) ([]models.QueuedAction, error)
	RemoveActions(ctx context.Context, ids []int64) error
	DeadLetter(ctx context.Context, a models.QueuedAction, reason string) error
}

type Remote interface {
	SyncExpenses(ctx context.Context, batch []client.ExpenseInput) ([]client.Expense, error)
	UpdateExpense(ctx context.Context, serverID string, in client.ExpenseInput) (*client.Expense, error)
	DeleteExpense(ctx context.Context, serverID string) error
	PostChatMessage(ctx context.Context, text, clientID string) (*client.ChatMessage, error)
	PostAdminMessage(ctx context.Context, userID, sessionID, text, clientID string) (*client.ChatMessage, error)
	CloseSession(ctx context.Context, sessionID string) (*client.ChatSession, error)
}

// maxSyncBatch matches the largest batch the server accepts.
const maxSyncBatch = 500

type Connectivity interface {
	IsOnline() bool
}

// Engine runs at most one sync at a time.
type Engine struct {
	store  Store
	remote Remote
	conn   Connectivity
	owner  func() string
	logger logging.Logger

	running        atomic.Bool
	onUnauthorized func(ctx context.Context)
}

// New returns an engine. owner yields the signed-in user id, or "" when
// nobody is signed in.
func New(s Store, r Remote, c Connectivity, owner func() string, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{
		store:          s,
		remote:         r,
		conn:           c,
		owner:          owner,
		logger:         logger.With("module", "syncer"),
		onUnauthorized: func(context.Context) {},
	}
}

// OnUnauthorized sets the hook run when the server rejects the credential.
func (e *Engine) OnUnauthorized(fn func(ctx context.Context)) {
	e.onUnauthorized = fn
}

// StartSync runs a full sync. It returns false without doing anything when
// a sync is already running, the device is offline or nobody is signed in.
// Failures of one kind do not prevent the next from running; they are
// joined into the returned error.
func (e *Engine) StartSync(ctx context.Context) (bool, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Debug(ctx, "sync already running")
		return false, nil
	}
	defer e.running.Store(false)

	if !e.conn.IsOnline() {
		e.logger.Debug(ctx, "offline, sync skipped")
		return false, nil
	}
	if e.owner() == "" {
		return false, nil
	}

	var errs []error
	for _, step := range []struct {
		name string
		fn   func(context.Context) error
	}{
		{"expenses", e.SyncExpenses},
		{"chat", e.SyncChatMessages},
		{"queue", e.ProcessOfflineQueue},
	} {
		if err := step.fn(ctx); err != nil {
			e.logger.Warn(ctx, "sync step failed", "step", step.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
			if errors.Is(err, client.ErrUnauthorized) {
				e.onUnauthorized(ctx)
				break
			}
		}
	}
	return true, errors.Join(errs...)
}

// SyncExpenses sends the pending expenses of the signed-in user in batches
// of at most maxSyncBatch and stores the canonical ids on the local rows.
// Each batch is marked synced before the next one is sent.
func (e *Engine) SyncExpenses(ctx context.Context) error {
	owner := e.owner()
	if owner == "" {
		return nil
	}
	pending, err := e.store.GetPendingExpenses(ctx, owner)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	synced := 0
	for start := 0; start < len(pending); start += maxSyncBatch {
		chunk := pending[start:min(start+maxSyncBatch, len(pending))]
		n, err := e.syncExpenseBatch(ctx, chunk)
		synced += n
		if err != nil {
			return err
		}
	}
	e.logger.Info(ctx, "expenses synced", "count", synced)
	return nil
}

func (e *Engine) syncExpenseBatch(ctx context.Context, pending []models.Expense) (int, error) {
	batch := make([]client.ExpenseInput, 0, len(pending))
	for _, p := range pending {
		batch = append(batch, client.ExpenseInput{
			ClientID:    p.ID,
			Amount:      p.Amount,
			Category:    p.Category,
			Description: p.Description,
			Date:        p.Date,
		})
	}

	canonical, err := e.remote.SyncExpenses(ctx, batch)
	if err != nil {
		return 0, err
	}

	for _, c := range canonical {
		if c.ClientID == "" {
			continue
		}
		if err := e.store.MarkExpenseSynced(ctx, c.ClientID, c.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return 0, err
		}
	}
	return len(canonical), nil
}

// SyncChatMessages posts the pending messages of the signed-in user in
// timestamp order. A transient failure stops the step and leaves the rest
// pending; a message the server refuses for good is marked rejected and
// the remaining ones are still sent.
func (e *Engine) SyncChatMessages(ctx context.Context) error {
	owner := e.owner()
	if owner == "" {
		return nil
	}
	pending, err := e.store.GetPendingChatMessages(ctx, owner)
	if err != nil {
		return err
	}

	sent := 0
	for _, m := range pending {
		var out *client.ChatMessage
		if m.IsAdmin {
			out, err = e.remote.PostAdminMessage(ctx, m.UserID, m.SessionID, m.Message, m.ID)
		} else {
			out, err = e.remote.PostChatMessage(ctx, m.Message, m.ID)
		}
		switch {
		case err == nil:
			if err := e.store.MarkChatMessageSynced(ctx, m.ID, out.ID, out.SessionID); err != nil {
				return err
			}
			sent++
		case client.IsTransient(err):
			return fmt.Errorf("message %s: %w", m.ID, err)
		default:
			e.logger.Error(ctx, "chat message rejected", "message_id", m.ID, "error", err)
			if err := e.store.RejectChatMessage(ctx, m.ID, err.Error()); err != nil {
				return err
			}
		}
	}
	if sent > 0 {
		e.logger.Info(ctx, "chat messages synced", "count", sent)
	}
	return nil
}

// ProcessOfflineQueue replays the queued actions of the signed-in user in
// FIFO order. Applied actions are removed together once the whole queue
// went through; a transient failure aborts and leaves them queued. Actions
// the server permanently rejects are moved to the dead letter table and
// replay continues.
func (e *Engine) ProcessOfflineQueue(ctx context.Context) error {
	owner := e.owner()
	if owner == "" {
		return nil
	}
	actions, err := e.store.DrainQueue(ctx, owner)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		return nil
	}

	applied := make([]int64, 0, len(actions))
	for _, a := range actions {
		err := e.apply(ctx, a)
		switch {
		case err == nil:
			applied = append(applied, a.ID)
		case client.IsTransient(err), errors.Is(err, common.ErrStorageUnavailable):
			e.logger.Warn(ctx, "replay aborted", "action_id", a.ID, "kind", a.Kind, "error", err)
			return fmt.Errorf("action %d (%s): %w", a.ID, a.Kind, err)
		default:
			e.logger.Error(ctx, "action rejected, moved to dead letters", "action_id", a.ID, "kind", a.Kind, "error", err)
			if dlErr := e.store.DeadLetter(ctx, a, err.Error()); dlErr != nil {
				return dlErr
			}
		}
	}

	if err := e.store.RemoveActions(ctx, applied); err != nil {
		return err
	}
	e.logger.Info(ctx, "offline queue replayed", "applied", len(applied), "total", len(actions))
	return nil
}

func (e *Engine) apply(ctx context.Context, a models.QueuedAction) error {
	payload, err := a.Decode()
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case models.DeleteExpense:
		serverID := p.ServerID
		if serverID == "" {
			return nil
		}
		err = e.remote.DeleteExpense(ctx, serverID)
		if errors.Is(err, client.ErrNotFound) {
			return nil
		}
		return err

	case models.UpdateExpense:
		serverID := p.ServerID
		if serverID == "" {
			if serverID, err = e.resolveServerID(ctx, p.ExpenseID); err != nil {
				return err
			}
		}
		if serverID == "" {
			// never reached the server; the pending row carries the change
			return nil
		}
		_, err = e.remote.UpdateExpense(ctx, serverID, client.ExpenseInput{
			Amount:      p.Amount,
			Category:    p.Category,
			Description: p.Description,
			Date:        p.Date,
		})
		return err

	case models.CloseChatSession:
		_, err = e.remote.CloseSession(ctx, p.SessionID)
		return err

	default:
		return fmt.Errorf("%w: %T", models.ErrUnknownAction, payload)
	}
}

func (e *Engine) resolveServerID(ctx context.Context, localID string) (string, error) {
	exp, err := e.store.GetExpense(ctx, localID)
	if errors.Is(err, common.ErrorNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return exp.ServerID, nil
}
