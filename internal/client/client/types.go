package client

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// ExpenseInput is the body of create, update and sync calls. ClientID is
// the local id of the expense.
type ExpenseInput struct {
	ClientID    string          `json:"client_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

type Expense struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	ClientID    string          `json:"client_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	ReceiptKey  string          `json:"receipt_key,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

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

type ChatSession struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

type SessionSummary struct {
	ChatSession
	UserName      string     `json:"user_name"`
	UserEmail     string     `json:"user_email"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadCount   int        `json:"unread_count"`
}

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

type ReceiptURL struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
