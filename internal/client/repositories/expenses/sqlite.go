package expenses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
)

const columns = `id, server_id, owner_id, amount, category, description, expense_date, synced, last_modified`

// SQLiteRepository implements Repository on a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, e *models.Expense) error {
	query := `INSERT INTO expenses (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET server_id = excluded.server_id,
			owner_id = excluded.owner_id,
			amount = excluded.amount,
			category = excluded.category,
			description = excluded.description,
			expense_date = excluded.expense_date,
			synced = excluded.synced,
			last_modified = excluded.last_modified`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.ServerID, e.OwnerID, e.Amount.String(), e.Category, e.Description, e.Date, e.Synced, e.LastModified)
	if err != nil {
		return fmt.Errorf("failed to upsert expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, ownerID string) ([]models.Expense, error) {
	query := `SELECT ` + columns + ` FROM expenses WHERE owner_id = ?
		ORDER BY expense_date DESC, last_modified DESC`
	return r.list(ctx, query, ownerID)
}

func (r *SQLiteRepository) GetPending(ctx context.Context, ownerID string) ([]models.Expense, error) {
	query := `SELECT ` + columns + ` FROM expenses WHERE owner_id = ? AND synced = 0
		ORDER BY last_modified, id`
	return r.list(ctx, query, ownerID)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM expenses WHERE id = ?`, id)

	e, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return e, nil
}

// MarkSynced records the canonical id on the same row and clears the
// pending flag.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, serverID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE expenses SET server_id = ?, synced = 1 WHERE id = ?`, serverID, id)
	if err != nil {
		return fmt.Errorf("failed to mark expense synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Expense, error) {
	var e models.Expense
	if err := s.Scan(&e.ID, &e.ServerID, &e.OwnerID, &e.Amount, &e.Category, &e.Description,
		&e.Date, &e.Synced, &e.LastModified); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select expenses: %w", err)
	}
	defer rows.Close()

	var result []models.Expense
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
