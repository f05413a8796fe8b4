package queue

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, a models.QueuedAction) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO offline_queue (owner_id, kind, payload, timestamp) VALUES (?, ?, ?, ?) RETURNING id`,
		a.OwnerID, string(a.Kind), string(a.Payload), a.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue action: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) List(ctx context.Context, ownerID string) ([]models.QueuedAction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, payload, timestamp
		FROM offline_queue WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue: %w", err)
	}
	defer rows.Close()

	var result []models.QueuedAction
	for rows.Next() {
		var (
			a       models.QueuedAction
			kind    string
			payload string
		)
		if err := rows.Scan(&a.ID, &a.OwnerID, &kind, &payload, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Kind = models.ActionKind(kind)
		a.Payload = []byte(payload)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM offline_queue WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to remove action %d: %w", id, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM offline_queue`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AddDeadLetter(ctx context.Context, a models.QueuedAction, reason string, now int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dead_letters (action_id, owner_id, kind, payload, timestamp, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, string(a.Kind), string(a.Payload), a.Timestamp, reason, now)
	if err != nil {
		return fmt.Errorf("failed to record dead letter: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeadLetters(ctx context.Context, ownerID string) ([]models.DeadLetter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action_id, owner_id, kind, payload, timestamp, reason, created_at
		FROM dead_letters WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select dead letters: %w", err)
	}
	defer rows.Close()

	var result []models.DeadLetter
	for rows.Next() {
		var (
			d       models.DeadLetter
			kind    string
			payload string
		)
		if err := rows.Scan(&d.ID, &d.Action.ID, &d.Action.OwnerID, &kind, &payload, &d.Action.Timestamp, &d.Reason, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Action.Kind = models.ActionKind(kind)
		d.Action.Payload = []byte(payload)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
