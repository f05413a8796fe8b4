package expenses

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Expense) (*models.Expense, error)
	Upsert(ctx context.Context, e *models.Expense) (*models.Expense, error)
	Update(ctx context.Context, e *models.Expense) (*models.Expense, error)
	Delete(ctx context.Context, userID, id string) error
	GetByID(ctx context.Context, userID, id string) (*models.Expense, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Expense, error)
	SetReceiptKey(ctx context.Context, userID, id, key string) error
}
