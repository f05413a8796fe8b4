package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is the canonical server copy of an expense. ClientID is the id the
// owning client assigned while offline; together with UserID it makes batch
// sync idempotent.
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
