package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/realtime"
	"github.com/dmitrijs2005/fintrack/internal/client/store"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/logging"
)

const maxMessageLength = 2000

// ChatService is the support chat as seen by the CLI. Users talk in their
// own conversation; operators reply to a user and manage sessions.
type ChatService interface {
	Send(ctx context.Context, text string) (*models.ChatMessage, error)
	Reply(ctx context.Context, userID, sessionID, text string) (*models.ChatMessage, error)
	// History returns the local copy of userID's conversation; users pass "".
	History(ctx context.Context, userID string) ([]models.ChatMessage, error)
	// Refresh pulls the conversation from the server into the local store.
	Refresh(ctx context.Context, sessionID string) error
	Sessions(ctx context.Context, status string) ([]client.SessionSummary, error)
	CloseSession(ctx context.Context, sessionID string) error
	Typing(ctx context.Context, targetUserID string) error
}

type ChatStore interface {
	PutChatMessage(ctx context.Context, m *models.ChatMessage) error
	GetChatMessages(ctx context.Context, userID string) ([]models.ChatMessage, error)
	EnqueueAction(ctx context.Context, a models.QueuedAction) (int64, error)
}

type ChatRemote interface {
	ChatHistory(ctx context.Context) ([]client.ChatMessage, error)
	SessionMessages(ctx context.Context, sessionID string) ([]client.ChatMessage, error)
	ListSessions(ctx context.Context, status string) ([]client.SessionSummary, error)
}

type ChatChannel interface {
	State() realtime.State
	SendUserMessage(ctx context.Context, userID, text string) (*models.ChatMessage, error)
	SendAdminMessage(ctx context.Context, authorID, userID, sessionID, text string) (*models.ChatMessage, error)
	SendTyping(targetUserID string) error
}

type chatService struct {
	store   ChatStore
	remote  ChatRemote
	channel ChatChannel
	session func() *store.Session
	trigger func(ctx context.Context)
	now     func() time.Time
	logger  logging.Logger
}

func NewChatService(s ChatStore, r ChatRemote, ch ChatChannel, session func() *store.Session, trigger func(ctx context.Context), logger logging.Logger) ChatService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &chatService{
		store:   s,
		remote:  r,
		channel: ch,
		session: session,
		trigger: trigger,
		now:     time.Now,
		logger:  logger.With("module", "chat"),
	}
}

func validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fieldError("message", "is required")
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		return "", fieldError("message", "is too long")
	}
	return text, nil
}

func (c *chatService) identity(admin bool) (*store.Session, error) {
	s := c.session()
	if s == nil {
		return nil, ErrNotSignedIn
	}
	if admin && s.Role != common.RoleAdmin {
		return nil, common.ErrForbidden
	}
	return s, nil
}

// afterWrite hands a message the channel could not emit to the sync engine.
func (c *chatService) afterWrite(ctx context.Context) {
	if c.channel.State() != realtime.StateJoined {
		c.trigger(ctx)
	}
}

func (c *chatService) Send(ctx context.Context, text string) (*models.ChatMessage, error) {
	s, err := c.identity(false)
	if err != nil {
		return nil, err
	}
	if text, err = validateText(text); err != nil {
		return nil, err
	}
	m, err := c.channel.SendUserMessage(ctx, s.UserID, text)
	if err != nil {
		return nil, err
	}
	c.afterWrite(ctx)
	return m, nil
}

func (c *chatService) Reply(ctx context.Context, userID, sessionID, text string) (*models.ChatMessage, error) {
	s, err := c.identity(true)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fieldError("user_id", "is required")
	}
	if text, err = validateText(text); err != nil {
		return nil, err
	}
	m, err := c.channel.SendAdminMessage(ctx, s.UserID, userID, sessionID, text)
	if err != nil {
		return nil, err
	}
	c.afterWrite(ctx)
	return m, nil
}

func (c *chatService) History(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	s, err := c.identity(false)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		userID = s.UserID
	}
	if userID != s.UserID && s.Role != common.RoleAdmin {
		return nil, common.ErrForbidden
	}
	return c.store.GetChatMessages(ctx, userID)
}

func (c *chatService) Refresh(ctx context.Context, sessionID string) error {
	s, err := c.identity(false)
	if err != nil {
		return err
	}

	var remote []client.ChatMessage
	if s.Role == common.RoleAdmin && sessionID != "" {
		remote, err = c.remote.SessionMessages(ctx, sessionID)
	} else {
		remote, err = c.remote.ChatHistory(ctx)
	}
	if err != nil {
		return err
	}

	for _, r := range remote {
		id := r.ClientID
		if id == "" {
			id = r.ID
		}
		m := &models.ChatMessage{
			ID:        id,
			ServerID:  r.ID,
			SessionID: r.SessionID,
			UserID:    r.UserID,
			Message:   r.Message,
			IsAdmin:   r.IsAdmin,
			Timestamp: r.CreatedAt.UnixMilli(),
			Synced:    true,
		}
		if err := c.store.PutChatMessage(ctx, m); err != nil {
			return err
		}
	}
	c.logger.Debug(ctx, "chat refreshed", "count", len(remote))
	return nil
}

func (c *chatService) Sessions(ctx context.Context, status string) ([]client.SessionSummary, error) {
	if _, err := c.identity(true); err != nil {
		return nil, err
	}
	return c.remote.ListSessions(ctx, status)
}

// CloseSession queues the close so it survives going offline.
func (c *chatService) CloseSession(ctx context.Context, sessionID string) error {
	s, err := c.identity(true)
	if err != nil {
		return err
	}
	if strings.TrimSpace(sessionID) == "" {
		return fieldError("session_id", "is required")
	}
	a, err := models.NewAction(s.UserID, models.CloseChatSession{SessionID: sessionID}, c.now().UnixMilli())
	if err != nil {
		return err
	}
	if _, err := c.store.EnqueueAction(ctx, a); err != nil {
		return err
	}
	c.trigger(ctx)
	return nil
}

func (c *chatService) Typing(ctx context.Context, targetUserID string) error {
	s, err := c.identity(false)
	if err != nil {
		return err
	}
	if s.Role != common.RoleAdmin {
		targetUserID = ""
	} else if targetUserID == "" {
		return fieldError("user_id", "is required")
	}
	return c.channel.SendTyping(targetUserID)
}
