package chatmessages

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.ChatMessage) (*models.ChatMessage, error)
	ListBySession(ctx context.Context, sessionID string) ([]*models.ChatMessage, error)
	ListByUser(ctx context.Context, userID string) ([]*models.ChatMessage, error)
	MarkReadByAdmin(ctx context.Context, sessionID string) error
	MarkReadByUser(ctx context.Context, userID string) error
}
