// Package supportmessages persists asynchronous support tickets.
package supportmessages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

const columns = `id, user_id, subject, message, status, COALESCE(admin_response, ''), response_at, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSupport(s scanner) (*models.SupportMessage, error) {
	m := &models.SupportMessage{}
	var respondedAt sql.NullTime
	if err := s.Scan(&m.ID, &m.UserID, &m.Subject, &m.Message, &m.Status, &m.AdminResponse,
		&respondedAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		m.ResponseAt = &respondedAt.Time
	}
	return m, nil
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.SupportMessage) (*models.SupportMessage, error) {
	query :=
		`INSERT INTO support_messages (user_id, subject, message)
		 VALUES ($1, $2, $3)
		 RETURNING ` + columns

	got, err := scanSupport(r.db.QueryRowContext(ctx, query, m.UserID, m.Subject, m.Message))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return got, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.SupportMessage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.SupportMessage
	for rows.Next() {
		m, err := scanSupport(rows)
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

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.SupportMessage, error) {
	return r.list(ctx, `SELECT `+columns+` FROM support_messages WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.SupportMessage, error) {
	return r.list(ctx, `SELECT `+columns+` FROM support_messages ORDER BY created_at DESC`)
}

func (r *PostgresRepository) Respond(ctx context.Context, id, response string) (*models.SupportMessage, error) {
	query :=
		`UPDATE support_messages
		 SET admin_response = $2, status = 'responded', response_at = now()
		 WHERE id = $1
		 RETURNING ` + columns

	got, err := scanSupport(r.db.QueryRowContext(ctx, query, id, response))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return got, nil
}
