package models

import "time"

// ChatSession is one support conversation. A user has at most one active
// session at a time; closed sessions are never reopened.
type ChatSession struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// SessionSummary is the admin listing view of a session.
type SessionSummary struct {
	ChatSession
	UserName      string     `json:"user_name"`
	UserEmail     string     `json:"user_email"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadCount   int        `json:"unread_count"`
}

// ChatMessage is a persisted chat line. UserID is the conversation owner,
// not necessarily the author: IsAdmin tells which side wrote it.
type ChatMessage struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	ClientID    string    `json:"client_id,omitempty"`
	Message     string    `json:"message"`
	IsAdmin     bool      `json:"is_admin_message"`
	ReadByAdmin bool      `json:"read_by_admin"`
	ReadByUser  bool      `json:"read_by_user"`
	CreatedAt   time.Time `json:"created_at"`
}
