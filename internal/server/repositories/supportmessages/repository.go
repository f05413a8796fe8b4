package supportmessages

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.SupportMessage) (*models.SupportMessage, error)
	ListByUser(ctx context.Context, userID string) ([]*models.SupportMessage, error)
	ListAll(ctx context.Context) ([]*models.SupportMessage, error)
	Respond(ctx context.Context, id, response string) (*models.SupportMessage, error)
}
