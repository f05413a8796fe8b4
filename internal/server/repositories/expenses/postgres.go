// Package expenses stores expenses in PostgreSQL. Every query is scoped by
// owner so one user can never read or change another user's rows.
package expenses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

const columns = `id, user_id, COALESCE(client_id, ''), amount, category, description,
		 expense_date::text, COALESCE(receipt_key, ''), created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (*models.Expense, error) {
	e := &models.Expense{}
	err := s.Scan(&e.ID, &e.UserID, &e.ClientID, &e.Amount, &e.Category, &e.Description,
		&e.Date, &e.ReceiptKey, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	query :=
		`INSERT INTO expenses (user_id, client_id, amount, category, description, expense_date)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		e.UserID, e.ClientID, e.Amount, e.Category, e.Description, e.Date).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

// Upsert inserts e or, when the owner already has a row with the same
// client id, overwrites that row. Replaying the same batch therefore never
// creates duplicates.
func (r *PostgresRepository) Upsert(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	query :=
		`INSERT INTO expenses (user_id, client_id, amount, category, description, expense_date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, client_id) DO UPDATE
		 SET amount = EXCLUDED.amount, category = EXCLUDED.category,
		     description = EXCLUDED.description, expense_date = EXCLUDED.expense_date,
		     updated_at = now()
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		e.UserID, e.ClientID, e.Amount, e.Category, e.Description, e.Date).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) Update(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	query :=
		`UPDATE expenses
		 SET amount = $3, category = $4, description = $5, expense_date = $6, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING ` + columns

	got, err := scanExpense(r.db.QueryRowContext(ctx, query,
		e.ID, e.UserID, e.Amount, e.Category, e.Description, e.Date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return got, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM expenses WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Expense, error) {
	query := `SELECT ` + columns + `
		 FROM expenses WHERE id = $1 AND user_id = $2`

	e, err := scanExpense(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Expense, error) {
	query := `SELECT ` + columns + `
		 FROM expenses WHERE user_id = $1
		 ORDER BY expense_date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) SetReceiptKey(ctx context.Context, userID, id, key string) error {
	query := `UPDATE expenses SET receipt_key = $3, updated_at = now() WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID, key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
