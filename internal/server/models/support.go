package models

import "time"

const (
	SupportOpen      = "open"
	SupportResponded = "responded"
)

// SupportMessage is an asynchronous support ticket answered by an admin.
type SupportMessage struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Subject       string     `json:"subject"`
	Message       string     `json:"message"`
	Status        string     `json:"status"`
	AdminResponse string     `json:"admin_response,omitempty"`
	ResponseAt    *time.Time `json:"response_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
