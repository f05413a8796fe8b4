// Package chatmessages persists chat lines of support sessions.
package chatmessages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

const columns = `id, session_id, user_id, COALESCE(client_id, ''), message, is_admin_message,
		 read_by_admin, read_by_user, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (*models.ChatMessage, error) {
	m := &models.ChatMessage{}
	err := s.Scan(&m.ID, &m.SessionID, &m.UserID, &m.ClientID, &m.Message, &m.IsAdmin,
		&m.ReadByAdmin, &m.ReadByUser, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create stores m. A message whose client id was already stored for the same
// conversation is not inserted twice; the existing row is returned instead.
func (r *PostgresRepository) Create(ctx context.Context, m *models.ChatMessage) (*models.ChatMessage, error) {
	query :=
		`INSERT INTO chat_messages (session_id, user_id, client_id, message, is_admin_message, read_by_admin, read_by_user)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $5, NOT $5)
		 ON CONFLICT (user_id, client_id) DO NOTHING
		 RETURNING ` + columns

	got, err := scanMessage(r.db.QueryRowContext(ctx, query,
		m.SessionID, m.UserID, m.ClientID, m.Message, m.IsAdmin))
	if err == nil {
		return got, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	existing := `SELECT ` + columns + ` FROM chat_messages WHERE user_id = $1 AND client_id = $2`
	got, err = scanMessage(r.db.QueryRowContext(ctx, existing, m.UserID, m.ClientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return got, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]*models.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.ChatMessage, error) {
	return r.list(ctx, `SELECT `+columns+` FROM chat_messages WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
}

// ListByUser returns the whole conversation history of a user across all of
// their sessions, oldest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.ChatMessage, error) {
	return r.list(ctx, `SELECT `+columns+` FROM chat_messages WHERE user_id = $1 ORDER BY created_at ASC`, userID)
}

func (r *PostgresRepository) MarkReadByAdmin(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE chat_messages SET read_by_admin = true
		 WHERE session_id = $1 AND is_admin_message = false AND read_by_admin = false`, sessionID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkReadByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE chat_messages SET read_by_user = true
		 WHERE user_id = $1 AND is_admin_message = true AND read_by_user = false`, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
