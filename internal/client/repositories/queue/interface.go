// Package queue persists offline mutations awaiting replay and the actions
// the server permanently rejected.
package queue

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
)

type Repository interface {
	// Enqueue appends a to the tail and returns its id.
	Enqueue(ctx context.Context, a models.QueuedAction) (int64, error)
	// List returns the actions queued for ownerID in FIFO order without
	// removing them.
	List(ctx context.Context, ownerID string) ([]models.QueuedAction, error)
	Remove(ctx context.Context, ids ...int64) error
	Clear(ctx context.Context) error
	// AddDeadLetter records a as permanently rejected. It does not remove a
	// from the queue.
	AddDeadLetter(ctx context.Context, a models.QueuedAction, reason string, now int64) error
	DeadLetters(ctx context.Context, ownerID string) ([]models.DeadLetter, error)
}
