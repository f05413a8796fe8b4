package realtime

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

// Hub tracks connections and room membership. All maps are guarded by mu;
// delivery never blocks: a client whose send buffer is full is dropped.
type Hub struct {
	mu      sync.Mutex
	rooms   map[string]map[*Client]struct{}
	admins  map[*Client]struct{}
	clients map[*Client]struct{}
	logger  logging.Logger
}

func NewHub(l logging.Logger) *Hub {
	return &Hub{
		rooms:   map[string]map[*Client]struct{}{},
		admins:  map[*Client]struct{}{},
		clients: map[*Client]struct{}{},
		logger:  l.With("module", "realtime_hub"),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if c.identity.IsAdmin() {
		h.admins[c] = struct{}{}
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	delete(h.admins, c)
	for room := range c.rooms {
		members := h.rooms[room]
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(c, room)
}

func (h *Hub) joinLocked(c *Client, room string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = map[*Client]struct{}{}
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// deliver sends frame to members of room accepted by filter.
func (h *Hub) deliver(room string, frame []byte, filter func(*Client) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[room] {
		if filter != nil && !filter(c) {
			continue
		}
		select {
		case c.send <- frame:
		default:
			h.logger.Warn(context.Background(), "dropping slow client", "user_id", c.identity.UserID)
			h.removeLocked(c)
		}
	}
}

func (h *Hub) broadcast(room, event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		h.logger.Error(context.Background(), "failed to encode event", "event", event, "error", err)
		return
	}
	h.deliver(room, frame, nil)
}

// Rooms returns the rooms c belongs to, sorted.
func (h *Hub) Rooms(c *Client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Online reports how many connections are open.
func (h *Hub) Online() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// SessionActivated pulls every connected admin into the user's room.
func (h *Hub) SessionActivated(userID string) {
	room := RoomFor(userID)
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.admins {
		h.joinLocked(c, room)
	}
}

// MessageCreated fans a stored message out to the owner's room.
func (h *Hub) MessageCreated(m *models.ChatMessage) {
	h.broadcast(RoomFor(m.UserID), EventMessage, m)
}

func (h *Hub) SessionClosed(s *models.ChatSession) {
	h.broadcast(RoomFor(s.UserID), EventSessionClosed, sessionClosedOut{SessionID: s.ID, UserID: s.UserID})
}

// sendTo queues frame for a single connection.
func (h *Hub) sendTo(c *Client, event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		h.logger.Error(context.Background(), "failed to encode event", "event", event, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
		h.removeLocked(c)
	}
}
