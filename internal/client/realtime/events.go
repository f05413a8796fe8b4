package realtime

import (
	"encoding/json"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
)

const (
	eventUserMessage   = "user_message"
	eventAdminMessage  = "admin_message"
	eventUserTyping    = "user_typing"
	eventAdminTyping   = "admin_typing"
	eventMessage       = "message"
	eventJoined        = "joined"
	eventSessionClosed = "session_closed"
	eventError         = "error"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type userMessageOut struct {
	Message   string `json:"message"`
	ClientID  string `json:"client_id"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type adminMessageOut struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	ClientID  string `json:"client_id"`
}

type typingPayload struct {
	UserID string `json:"user_id"`
}

type joinedIn struct {
	SessionID string   `json:"session_id"`
	Rooms     []string `json:"rooms"`
}

type sessionClosedIn struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type errorIn struct {
	Message string `json:"message"`
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: event, Data: raw})
}

// EventKind classifies what the channel observed.
type EventKind string

const (
	EventJoined        EventKind = "joined"
	EventMessage       EventKind = "message"
	EventTyping        EventKind = "typing"
	EventTypingStopped EventKind = "typing_stopped"
	EventSessionClosed EventKind = "session_closed"
	EventError         EventKind = "error"
	EventDisconnected  EventKind = "disconnected"
)

type Event struct {
	Kind      EventKind
	Message   *models.ChatMessage
	SessionID string
	UserID    string
	Admin     bool
	Text      string
}
