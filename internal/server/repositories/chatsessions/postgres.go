// Package chatsessions persists support chat sessions.
package chatsessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

const columns = `id, user_id, status, created_at, updated_at, closed_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanSession(row *sql.Row) (*models.ChatSession, error) {
	s := &models.ChatSession{}
	var closedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.UserID, &s.Status, &s.CreatedAt, &s.UpdatedAt, &closedAt); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		s.ClosedAt = &closedAt.Time
	}
	return s, nil
}

// EnsureActive returns the user's active session, creating it when absent.
// The bool result reports whether a new session was created. Concurrent
// callers race on the partial unique index; the loser reads the winner's row.
func (r *PostgresRepository) EnsureActive(ctx context.Context, userID string) (*models.ChatSession, bool, error) {
	query :=
		`INSERT INTO chat_sessions (user_id, status)
		 VALUES ($1, 'active')
		 ON CONFLICT (user_id) WHERE status = 'active' DO NOTHING
		 RETURNING ` + columns

	s, err := scanSession(r.db.QueryRowContext(ctx, query, userID))
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	s, err = r.GetActive(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return s, false, nil
}

func (r *PostgresRepository) GetActive(ctx context.Context, userID string) (*models.ChatSession, error) {
	query := `SELECT ` + columns + ` FROM chat_sessions WHERE user_id = $1 AND status = 'active'`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.ChatSession, error) {
	query := `SELECT ` + columns + ` FROM chat_sessions WHERE id = $1`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Close moves an active session to closed. Closing an already closed
// session returns it unchanged.
func (r *PostgresRepository) Close(ctx context.Context, id string) (*models.ChatSession, error) {
	query :=
		`UPDATE chat_sessions
		 SET status = 'closed', closed_at = now(), updated_at = now()
		 WHERE id = $1 AND status = 'active'
		 RETURNING ` + columns

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return r.GetByID(ctx, id)
}

// ListSummaries returns sessions with the given status (all when empty),
// most recently active first, each with its last message and the number of
// user messages no admin has read yet.
func (r *PostgresRepository) ListSummaries(ctx context.Context, status string) ([]*models.SessionSummary, error) {
	query :=
		`SELECT s.id, s.user_id, s.status, s.created_at, s.updated_at, s.closed_at,
		        u.name, u.email,
		        COALESCE(lm.message, ''), lm.created_at,
		        (SELECT COUNT(*) FROM chat_messages m
		          WHERE m.session_id = s.id AND m.is_admin_message = false AND m.read_by_admin = false)
		 FROM chat_sessions s
		 JOIN users u ON u.id = s.user_id
		 LEFT JOIN LATERAL (
		     SELECT message, created_at FROM chat_messages
		     WHERE session_id = s.id ORDER BY created_at DESC LIMIT 1
		 ) lm ON true
		 WHERE ($1 = '' OR s.status = $1)
		 ORDER BY s.updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.SessionSummary
	for rows.Next() {
		s := &models.SessionSummary{}
		var closedAt, lastAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.UserID, &s.Status, &s.CreatedAt, &s.UpdatedAt, &closedAt,
			&s.UserName, &s.UserEmail, &s.LastMessage, &lastAt, &s.UnreadCount); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if closedAt.Valid {
			s.ClosedAt = &closedAt.Time
		}
		if lastAt.Valid {
			s.LastMessageAt = &lastAt.Time
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM chat_sessions WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}
