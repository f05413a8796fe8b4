// Package realtime keeps the client's websocket to the support chat relay.
// Outgoing messages are always written to the local store first and are
// only marked synced when the server echoes them back, so a message sent
// while disconnected is picked up by the sync engine later.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateJoined       State = "joined"
)

const (
	defaultTypingTTL = 3 * time.Second
	writeWait        = 10 * time.Second
)

type Store interface {
	PutChatMessage(ctx context.Context, m *models.ChatMessage) error
}

type Channel struct {
	url    string
	token  func() string
	store  Store
	dialer *websocket.Dialer
	logger logging.Logger
	events chan Event
	now    func() time.Time

	typingTTL time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	state     State
	sessionID string
	rooms     []string
	typing    map[string]*time.Timer

	writeMu sync.Mutex
}

// NewChannel derives the websocket endpoint from the REST base URL.
func NewChannel(baseURL string, token func() string, s Store, logger logging.Logger) (*Channel, error) {
	u, err := wsURL(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Channel{
		url:       u,
		token:     token,
		store:     s,
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:    logger.With("module", "realtime"),
		events:    make(chan Event, 64),
		now:       time.Now,
		typingTTL: defaultTypingTTL,
		state:     StateDisconnected,
		typing:    map[string]*time.Timer{},
	}, nil
}

func wsURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID is the active session announced by the server, if any.
func (c *Channel) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Channel) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.rooms...)
}

// Events delivers incoming chat activity. Events are dropped when nobody
// drains the channel.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Open dials the relay. It is a no-op when a connection already exists.
// A rejected credential yields client.ErrUnauthorized; any other dial
// failure yields client.ErrUnavailable.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	header := http.Header{}
	header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.token())

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		c.setState(StateDisconnected)
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return client.ErrUnauthorized
		}
		return fmt.Errorf("%w: %w", client.ErrUnavailable, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info(ctx, "realtime connected")
	go c.readLoop(ctx, conn)
	return nil
}

// Close drops the connection and clears typing indicators. The server
// keeps the session.
func (c *Channel) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.clearTypingLocked()
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return conn.Close()
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.state = StateDisconnected
			c.clearTypingLocked()
		}
		c.mu.Unlock()
		_ = conn.Close()
		c.emit(Event{Kind: EventDisconnected})
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, websocket.ErrCloseSent) {
				c.logger.Debug(ctx, "realtime read failed", "error", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn(ctx, "malformed frame", "error", err)
			continue
		}
		c.handle(ctx, env)
	}
}

func (c *Channel) handle(ctx context.Context, env envelope) {
	switch env.Event {
	case eventJoined:
		var in joinedIn
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		c.mu.Lock()
		c.state = StateJoined
		c.sessionID = in.SessionID
		c.rooms = in.Rooms
		c.mu.Unlock()
		c.emit(Event{Kind: EventJoined, SessionID: in.SessionID})

	case eventMessage:
		var in client.ChatMessage
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		m := fromRemote(in)
		if err := c.store.PutChatMessage(ctx, m); err != nil {
			c.logger.Error(ctx, "store incoming message", "error", err)
		}
		if !in.IsAdmin {
			c.stopTyping(in.UserID)
		}
		c.emit(Event{Kind: EventMessage, Message: m, SessionID: in.SessionID, UserID: in.UserID})

	case eventUserTyping, eventAdminTyping:
		var in typingPayload
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		c.startTyping(in.UserID, env.Event == eventAdminTyping)

	case eventSessionClosed:
		var in sessionClosedIn
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		c.mu.Lock()
		if c.sessionID == in.SessionID {
			c.sessionID = ""
		}
		c.mu.Unlock()
		c.emit(Event{Kind: EventSessionClosed, SessionID: in.SessionID, UserID: in.UserID})

	case eventError:
		var in errorIn
		_ = json.Unmarshal(env.Data, &in)
		c.logger.Warn(ctx, "relay reported error", "message", in.Message)
		c.emit(Event{Kind: EventError, Text: in.Message})
	}
}

func fromRemote(in client.ChatMessage) *models.ChatMessage {
	id := in.ClientID
	if id == "" {
		id = in.ID
	}
	return &models.ChatMessage{
		ID:        id,
		ServerID:  in.ID,
		SessionID: in.SessionID,
		UserID:    in.UserID,
		Message:   in.Message,
		IsAdmin:   in.IsAdmin,
		Timestamp: in.CreatedAt.UnixMilli(),
		Synced:    true,
	}
}

func (c *Channel) emit(e Event) {
	select {
	case c.events <- e:
	default:
	}
}

// startTyping shows an indicator for userID until typingTTL passes without
// another typing event.
func (c *Channel) startTyping(userID string, admin bool) {
	c.mu.Lock()
	t, active := c.typing[userID]
	if active {
		t.Reset(c.typingTTL)
		c.mu.Unlock()
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(c.typingTTL, func() {
		c.mu.Lock()
		if c.typing[userID] != timer {
			c.mu.Unlock()
			return
		}
		delete(c.typing, userID)
		c.mu.Unlock()
		c.emit(Event{Kind: EventTypingStopped, UserID: userID})
	})
	c.typing[userID] = timer
	c.mu.Unlock()

	c.emit(Event{Kind: EventTyping, UserID: userID, Admin: admin})
}

func (c *Channel) stopTyping(userID string) {
	c.mu.Lock()
	t, ok := c.typing[userID]
	if ok {
		t.Stop()
		delete(c.typing, userID)
	}
	c.mu.Unlock()
	if ok {
		c.emit(Event{Kind: EventTypingStopped, UserID: userID})
	}
}

// clearTypingLocked stops every indicator timer without emitting
// EventTypingStopped. c.mu must be held.
func (c *Channel) clearTypingLocked() {
	for _, t := range c.typing {
		t.Stop()
	}
	c.typing = map[string]*time.Timer{}
}

// IsTyping reports whether userID has a live typing indicator.
func (c *Channel) IsTyping(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.typing[userID]
	return ok
}

func (c *Channel) send(event string, data any) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if conn == nil || state != StateJoined {
		return client.ErrUnavailable
	}

	frame, err := encode(event, data)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("%w: %w", client.ErrUnavailable, err)
	}
	return nil
}

// SendUserMessage records text in userID's conversation and emits it when
// joined. The returned message stays pending until the echo arrives.
func (c *Channel) SendUserMessage(ctx context.Context, userID, text string) (*models.ChatMessage, error) {
	m := &models.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		AuthorID:  userID,
		SessionID: c.SessionID(),
		Message:   text,
		Timestamp: c.now().UnixMilli(),
	}
	if err := c.store.PutChatMessage(ctx, m); err != nil {
		return nil, err
	}
	if err := c.send(eventUserMessage, userMessageOut{Message: text, ClientID: m.ID, Timestamp: m.Timestamp}); err != nil {
		c.logger.Debug(ctx, "message left pending", "client_id", m.ID, "error", err)
	}
	return m, nil
}

// SendAdminMessage is SendUserMessage for operator authorID answering
// userID.
func (c *Channel) SendAdminMessage(ctx context.Context, authorID, userID, sessionID, text string) (*models.ChatMessage, error) {
	m := &models.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		AuthorID:  authorID,
		SessionID: sessionID,
		Message:   text,
		IsAdmin:   true,
		Timestamp: c.now().UnixMilli(),
	}
	if err := c.store.PutChatMessage(ctx, m); err != nil {
		return nil, err
	}
	out := adminMessageOut{Message: text, UserID: userID, SessionID: sessionID, ClientID: m.ID}
	if err := c.send(eventAdminMessage, out); err != nil {
		c.logger.Debug(ctx, "message left pending", "client_id", m.ID, "error", err)
	}
	return m, nil
}

// SendTyping signals typing. Operators name the user they are answering;
// users pass "".
func (c *Channel) SendTyping(targetUserID string) error {
	if targetUserID == "" {
		return c.send(eventUserTyping, struct{}{})
	}
	return c.send(eventAdminTyping, typingPayload{UserID: targetUserID})
}
