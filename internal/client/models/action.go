package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ActionKind names a queued offline mutation.
type ActionKind string

const (
	ActionDeleteExpense    ActionKind = "delete_expense"
	ActionUpdateExpense    ActionKind = "update_expense"
	ActionCloseChatSession ActionKind = "close_chat_session"
)

var ErrUnknownAction = errors.New("unknown action kind")

// ActionPayload is implemented by every queued action payload.
type ActionPayload interface {
	Kind() ActionKind
}

type DeleteExpense struct {
	ExpenseID string `json:"expense_id"`
	ServerID  string `json:"server_id"`
}

func (DeleteExpense) Kind() ActionKind { return ActionDeleteExpense }

type UpdateExpense struct {
	ExpenseID   string          `json:"expense_id"`
	ServerID    string          `json:"server_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

func (UpdateExpense) Kind() ActionKind { return ActionUpdateExpense }

type CloseChatSession struct {
	SessionID string `json:"session_id"`
}

func (CloseChatSession) Kind() ActionKind { return ActionCloseChatSession }

// QueuedAction is one row of the offline queue. ID is assigned by the store
// and orders replay. OwnerID is the user the action was recorded for; only
// that user's sync replays it.
type QueuedAction struct {
	ID        int64
	OwnerID   string
	Kind      ActionKind
	Payload   json.RawMessage
	Timestamp int64
}

// NewAction encodes p into a queue row owned by ownerID.
func NewAction(ownerID string, p ActionPayload, ts int64) (QueuedAction, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return QueuedAction{}, err
	}
	return QueuedAction{OwnerID: ownerID, Kind: p.Kind(), Payload: b, Timestamp: ts}, nil
}

// Decode returns the typed payload. Unknown kinds yield ErrUnknownAction.
func (a QueuedAction) Decode() (ActionPayload, error) {
	switch a.Kind {
	case ActionDeleteExpense:
		var v DeleteExpense
		return v, json.Unmarshal(a.Payload, &v)
	case ActionUpdateExpense:
		var v UpdateExpense
		return v, json.Unmarshal(a.Payload, &v)
	case ActionCloseChatSession:
		var v CloseChatSession
		return v, json.Unmarshal(a.Payload, &v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
}

// DeadLetter is an action the server permanently rejected.
type DeadLetter struct {
	ID        int64
	Action    QueuedAction
	Reason    string
	CreatedAt int64
}
