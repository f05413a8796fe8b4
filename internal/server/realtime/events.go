// Package realtime relays live support chat over websockets. Each user owns
// one room; admin connections join every room with an active session.
package realtime

import "encoding/json"

// Event names carried in the envelope.
const (
	EventUserMessage  = "user_message"
	EventAdminMessage = "admin_message"
	EventUserTyping   = "user_typing"
	EventAdminTyping  = "admin_typing"

	EventMessage       = "message"
	EventJoined        = "joined"
	EventSessionClosed = "session_closed"
	EventError         = "error"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type userMessageIn struct {
	Message  string `json:"message"`
	ClientID string `json:"client_id"`
}

type adminMessageIn struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id"`
}

type typingIn struct {
	UserID string `json:"user_id"`
}

type typingOut struct {
	UserID string `json:"user_id"`
}

type joinedOut struct {
	SessionID string   `json:"session_id,omitempty"`
	Rooms     []string `json:"rooms"`
}

type sessionClosedOut struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type errorOut struct {
	Message string `json:"message"`
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// RoomFor names the room that carries userID's conversation.
func RoomFor(userID string) string {
	return "user:" + userID
}
