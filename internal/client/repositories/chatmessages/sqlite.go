package chatmessages

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
)

const columns = `id, server_id, session_id, user_id, author_id, message, is_admin_message, timestamp, synced, reject_reason`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Put upserts by local id. A synced copy never loses its server id to a
// later pending write of the same row.
func (r *SQLiteRepository) Put(ctx context.Context, m *models.ChatMessage) error {
	query := `INSERT INTO chat_messages (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			server_id = CASE WHEN excluded.server_id <> '' THEN excluded.server_id ELSE chat_messages.server_id END,
			session_id = CASE WHEN excluded.session_id <> '' THEN excluded.session_id ELSE chat_messages.session_id END,
			author_id = CASE WHEN excluded.author_id <> '' THEN excluded.author_id ELSE chat_messages.author_id END,
			message = excluded.message,
			is_admin_message = excluded.is_admin_message,
			timestamp = excluded.timestamp,
			synced = MAX(chat_messages.synced, excluded.synced)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.ServerID, m.SessionID, m.UserID, m.AuthorID, m.Message, m.IsAdmin, m.Timestamp, m.Synced, m.RejectReason)
	if err != nil {
		return fmt.Errorf("failed to upsert chat message: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	return r.list(ctx, `SELECT `+columns+` FROM chat_messages WHERE user_id = ? ORDER BY timestamp, id`, userID)
}

func (r *SQLiteRepository) GetPending(ctx context.Context, authorID string) ([]models.ChatMessage, error) {
	return r.list(ctx, `SELECT `+columns+` FROM chat_messages
		WHERE synced = 0 AND reject_reason = '' AND author_id = ?
		ORDER BY timestamp, id`, authorID)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, serverID, sessionID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE chat_messages
		SET server_id = ?, synced = 1,
			session_id = CASE WHEN ? <> '' THEN ? ELSE session_id END
		WHERE id = ?`, serverID, sessionID, sessionID, id)
	if err != nil {
		return fmt.Errorf("failed to mark chat message synced: %w", err)
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

func (r *SQLiteRepository) Reject(ctx context.Context, id, reason string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_messages SET reject_reason = ? WHERE id = ?`, reason, id)
	if err != nil {
		return fmt.Errorf("failed to reject chat message: %w", err)
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

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select chat messages: %w", err)
	}
	defer rows.Close()

	var result []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.ServerID, &m.SessionID, &m.UserID, &m.AuthorID, &m.Message,
			&m.IsAdmin, &m.Timestamp, &m.Synced, &m.RejectReason); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
