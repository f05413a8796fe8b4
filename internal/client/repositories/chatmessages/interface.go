// Package chatmessages persists chat lines on the device, both those
// written locally and those received from the server.
package chatmessages

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
)

type Repository interface {
	// Put inserts or replaces a message by local id.
	Put(ctx context.Context, m *models.ChatMessage) error
	// List returns the conversation of userID in timestamp order.
	List(ctx context.Context, userID string) ([]models.ChatMessage, error)
	// GetPending returns the unsynced, not rejected messages written by
	// authorID in timestamp order.
	GetPending(ctx context.Context, authorID string) ([]models.ChatMessage, error)
	MarkSynced(ctx context.Context, id, serverID, sessionID string) error
	// Reject records why the server refused the message for good. A
	// rejected message is no longer pending.
	Reject(ctx context.Context, id, reason string) error
}
