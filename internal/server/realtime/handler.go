package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/dmitrijs2005/fintrack/internal/server/auth"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
	"github.com/gorilla/websocket"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

type ChatService interface {
	EnsureActiveSession(ctx context.Context, userID string) (*models.ChatSession, error)
	PostUserMessage(ctx context.Context, id auth.Identity, text, clientID string) (*models.ChatMessage, error)
	PostAdminMessage(ctx context.Context, id auth.Identity, userID, sessionID, text, clientID string) (*models.ChatMessage, error)
	ActiveSessionUserIDs(ctx context.Context) ([]string, error)
}

// Handler upgrades /ws requests and routes inbound events.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	chat     ChatService
	upgrader websocket.Upgrader
	logger   logging.Logger
	ctx      context.Context
}

// NewHandler builds the websocket endpoint. ctx bounds the lifetime of every
// connection it accepts. origins follows the CORS configuration; "*" allows
// any origin.
func NewHandler(ctx context.Context, hub *Hub, a Authenticator, chat ChatService, origins []string, l logging.Logger) *Handler {
	h := &Handler{
		hub:    hub,
		auth:   a,
		chat:   chat,
		logger: l.With("module", "realtime"),
		ctx:    ctx,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := map[string]bool{}
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get(common.AuthorizationHeaderName); strings.HasPrefix(h, common.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
	}
	return r.URL.Query().Get("token")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	id, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		hub:      h.hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		identity: id,
		rooms:    map[string]struct{}{},
		handler:  h,
		logger:   h.logger.With("user_id", id.UserID, "role", id.Role),
	}
	h.hub.register(c)

	go c.writePump()

	ctx := h.ctx
	joined, err := h.bind(ctx, c)
	if err != nil {
		h.logger.Error(ctx, "failed to bind connection", "user_id", id.UserID, "error", err)
		h.hub.sendTo(c, EventError, errorOut{Message: "failed to join chat"})
		h.hub.unregister(c)
		return
	}
	h.hub.sendTo(c, EventJoined, joined)
	c.logger.Info(ctx, "websocket connected", "rooms", len(joined.Rooms))

	go c.readPump(ctx)
}

// bind puts a fresh connection in its rooms: users in their own, admins in
// every room with an active session.
func (h *Handler) bind(ctx context.Context, c *Client) (joinedOut, error) {
	if c.identity.IsAdmin() {
		ids, err := h.chat.ActiveSessionUserIDs(ctx)
		if err != nil {
			return joinedOut{}, err
		}
		for _, uid := range ids {
			h.hub.join(c, RoomFor(uid))
		}
		return joinedOut{Rooms: h.hub.Rooms(c)}, nil
	}

	h.hub.join(c, RoomFor(c.identity.UserID))
	s, err := h.chat.EnsureActiveSession(ctx, c.identity.UserID)
	if err != nil {
		return joinedOut{}, err
	}
	return joinedOut{SessionID: s.ID, Rooms: h.hub.Rooms(c)}, nil
}

func (h *Handler) dispatch(ctx context.Context, c *Client, env Envelope) {
	switch env.Event {
	case EventUserMessage:
		var in userMessageIn
		if err := json.Unmarshal(env.Data, &in); err != nil {
			h.hub.sendTo(c, EventError, errorOut{Message: "malformed user_message"})
			return
		}
		if _, err := h.chat.PostUserMessage(ctx, c.identity, in.Message, in.ClientID); err != nil {
			h.reportError(ctx, c, err)
		}

	case EventAdminMessage:
		if !c.identity.IsAdmin() {
			c.logger.Warn(ctx, "admin_message from non-admin ignored")
			return
		}
		var in adminMessageIn
		if err := json.Unmarshal(env.Data, &in); err != nil || in.UserID == "" {
			h.hub.sendTo(c, EventError, errorOut{Message: "malformed admin_message"})
			return
		}
		if _, err := h.chat.PostAdminMessage(ctx, c.identity, in.UserID, in.SessionID, in.Message, in.ClientID); err != nil {
			h.reportError(ctx, c, err)
		}

	case EventUserTyping:
		if c.identity.IsAdmin() {
			return
		}
		frame, err := encode(EventUserTyping, typingOut{UserID: c.identity.UserID})
		if err != nil {
			return
		}
		h.hub.deliver(RoomFor(c.identity.UserID), frame, func(m *Client) bool {
			return m.identity.IsAdmin()
		})

	case EventAdminTyping:
		if !c.identity.IsAdmin() {
			return
		}
		var in typingIn
		if err := json.Unmarshal(env.Data, &in); err != nil || in.UserID == "" {
			return
		}
		frame, err := encode(EventAdminTyping, typingOut{UserID: in.UserID})
		if err != nil {
			return
		}
		h.hub.deliver(RoomFor(in.UserID), frame, func(m *Client) bool {
			return !m.identity.IsAdmin()
		})

	default:
		h.hub.sendTo(c, EventError, errorOut{Message: "unknown event " + env.Event})
	}
}

func (h *Handler) reportError(ctx context.Context, c *Client, err error) {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		h.hub.sendTo(c, EventError, errorOut{Message: ve.Error()})
	case errors.Is(err, common.ErrorNotFound):
		h.hub.sendTo(c, EventError, errorOut{Message: "no active session"})
	case errors.Is(err, common.ErrForbidden):
		h.hub.sendTo(c, EventError, errorOut{Message: "forbidden"})
	default:
		c.logger.Error(ctx, "chat event failed", "error", err)
		h.hub.sendTo(c, EventError, errorOut{Message: "failed to process event"})
	}
}
