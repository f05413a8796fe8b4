// Package expenses persists the device's copy of expenses.
package expenses

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
)

// Repository stores local expenses. Rows are keyed by the local id; the
// server id is filled in place once the server acknowledges a record.
type Repository interface {
	// Put inserts or replaces an expense by local id.
	Put(ctx context.Context, e *models.Expense) error
	// GetAll lists the owner's expenses, newest date first.
	GetAll(ctx context.Context, ownerID string) ([]models.Expense, error)
	// GetByID returns common.ErrorNotFound when the row is absent.
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	// GetPending lists the owner's unsynced expenses in modification order.
	GetPending(ctx context.Context, ownerID string) ([]models.Expense, error)
	MarkSynced(ctx context.Context, id, serverID string) error
	Delete(ctx context.Context, id string) error
}
