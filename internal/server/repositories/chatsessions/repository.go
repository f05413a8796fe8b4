package chatsessions

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

type Repository interface {
	EnsureActive(ctx context.Context, userID string) (*models.ChatSession, bool, error)
	GetActive(ctx context.Context, userID string) (*models.ChatSession, error)
	GetByID(ctx context.Context, id string) (*models.ChatSession, error)
	Touch(ctx context.Context, id string) error
	Close(ctx context.Context, id string) (*models.ChatSession, error)
	ListSummaries(ctx context.Context, status string) ([]*models.SessionSummary, error)
	ActiveUserIDs(ctx context.Context) ([]string, error)
}
