// Package models defines client-side data models used by the fintrack CLI.
package models

import "github.com/shopspring/decimal"

// Expense is the local copy of an expense. ID is assigned on the device and
// doubles as the client_id sent to the server; ServerID stays empty until
// the server acknowledges the record.
type Expense struct {
	ID           string
	ServerID     string
	OwnerID      string
	Amount       decimal.Decimal
	Category     string
	Description  string
	Date         string
	Synced       bool
	LastModified int64
}

// ChatMessage is a chat line as stored on the device. ID is the local id and
// is sent as client_id so echoes and retries can be matched.
//
// UserID is the conversation the line belongs to; AuthorID is the signed-in
// user who wrote it on this device and is empty for lines received from the
// server. A line the server refused for good keeps RejectReason and is not
// sent again.
type ChatMessage struct {
	ID           string
	ServerID     string
	SessionID    string
	UserID       string
	AuthorID     string
	Message      string
	IsAdmin      bool
	Timestamp    int64
	Synced       bool
	RejectReason string
}
