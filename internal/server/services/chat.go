package services

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/dmitrijs2005/fintrack/internal/server/auth"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/repomanager"
)

const maxChatMessageLength = 2000

// ChatNotifier receives chat state changes so live connections can be
// updated no matter which transport produced the change.
type ChatNotifier interface {
	SessionActivated(userID string)
	MessageCreated(m *models.ChatMessage)
	SessionClosed(s *models.ChatSession)
}

type nopNotifier struct{}

func (nopNotifier) SessionActivated(string)            {}
func (nopNotifier) MessageCreated(*models.ChatMessage) {}
func (nopNotifier) SessionClosed(*models.ChatSession)  {}

// ChatService implements the support chat session lifecycle:
// a user has at most one active session, created lazily by the first
// message or connection; an admin may close it, after which the next user
// message opens a fresh session. Closed sessions are never reopened.
type ChatService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    ChatNotifier
	logger      logging.Logger
}

func NewChatService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *ChatService {
	return &ChatService{
		db:          db,
		repomanager: m,
		notifier:    nopNotifier{},
		logger:      l.With("module", "chat_service"),
	}
}

// SetNotifier installs n as the receiver of state changes.
func (s *ChatService) SetNotifier(n ChatNotifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

func validateMessage(text string) (string, error) {
	text = strings.TrimSpace(text)
	v := common.NewValidationError()
	if text == "" {
		v.Add("message", "message is required")
	} else if utf8.RuneCountInString(text) > maxChatMessageLength {
		v.Add("message", "message is too long")
	}
	return text, v.OrNil()
}

// EnsureActiveSession returns the user's active session, creating one if
// none exists. Calling it repeatedly never yields two active sessions.
func (s *ChatService) EnsureActiveSession(ctx context.Context, userID string) (*models.ChatSession, error) {
	session, created, err := s.repomanager.ChatSessions(s.db).EnsureActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info(ctx, "chat session created", "session_id", session.ID, "user_id", userID)
		s.notifier.SessionActivated(userID)
	}
	return session, nil
}

// PostUserMessage stores a message authored by the user in their active
// session. clientID makes retries idempotent.
func (s *ChatService) PostUserMessage(ctx context.Context, id auth.Identity, text, clientID string) (*models.ChatMessage, error) {
	text, err := validateMessage(text)
	if err != nil {
		return nil, err
	}

	session, err := s.EnsureActiveSession(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	return s.store(ctx, session, &models.ChatMessage{
		SessionID: session.ID,
		UserID:    id.UserID,
		ClientID:  clientID,
		Message:   text,
		IsAdmin:   false,
	})
}

// PostAdminMessage stores an admin reply in a user's conversation. When
// sessionID is empty the user's active session is used.
func (s *ChatService) PostAdminMessage(ctx context.Context, id auth.Identity, userID, sessionID, text, clientID string) (*models.ChatMessage, error) {
	if !id.IsAdmin() {
		return nil, common.ErrForbidden
	}
	text, err := validateMessage(text)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.ChatSessions(s.db)
	var session *models.ChatSession
	if sessionID != "" {
		session, err = repo.GetByID(ctx, sessionID)
	} else {
		session, err = repo.GetActive(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	if userID != "" && session.UserID != userID {
		return nil, common.ErrorNotFound
	}
	if session.Status != common.SessionActive {
		v := common.NewValidationError()
		v.Add("session_id", "session is closed")
		return nil, v
	}

	return s.store(ctx, session, &models.ChatMessage{
		SessionID: session.ID,
		UserID:    session.UserID,
		ClientID:  clientID,
		Message:   text,
		IsAdmin:   true,
	})
}

func (s *ChatService) store(ctx context.Context, session *models.ChatSession, m *models.ChatMessage) (*models.ChatMessage, error) {
	saved, err := s.repomanager.ChatMessages(s.db).Create(ctx, m)
	if err != nil {
		return nil, err
	}
	if err := s.repomanager.ChatSessions(s.db).Touch(ctx, session.ID); err != nil {
		s.logger.Warn(ctx, "failed to touch chat session", "session_id", session.ID, "error", err)
	}
	s.notifier.MessageCreated(saved)
	return saved, nil
}

// UserMessages returns the caller's conversation and marks admin replies
// as read by the user.
func (s *ChatService) UserMessages(ctx context.Context, id auth.Identity) ([]*models.ChatMessage, error) {
	repo := s.repomanager.ChatMessages(s.db)
	msgs, err := repo.ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if err := repo.MarkReadByUser(ctx, id.UserID); err != nil {
		s.logger.Warn(ctx, "failed to mark messages read", "user_id", id.UserID, "error", err)
	}
	return msgs, nil
}

// ListSessions is the admin inbox. status filters by session state; an
// empty status lists everything.
func (s *ChatService) ListSessions(ctx context.Context, id auth.Identity, status string) ([]*models.SessionSummary, error) {
	if !id.IsAdmin() {
		return nil, common.ErrForbidden
	}
	if status != "" && status != common.SessionActive && status != common.SessionClosed {
		v := common.NewValidationError()
		v.Add("status", "status must be active or closed")
		return nil, v
	}
	return s.repomanager.ChatSessions(s.db).ListSummaries(ctx, status)
}

// SessionMessages returns one session's messages for an admin and marks the
// user's messages in it as read by admin.
func (s *ChatService) SessionMessages(ctx context.Context, id auth.Identity, sessionID string) ([]*models.ChatMessage, error) {
	if !id.IsAdmin() {
		return nil, common.ErrForbidden
	}
	if _, err := s.repomanager.ChatSessions(s.db).GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	repo := s.repomanager.ChatMessages(s.db)
	msgs, err := repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := repo.MarkReadByAdmin(ctx, sessionID); err != nil {
		s.logger.Warn(ctx, "failed to mark messages read", "session_id", sessionID, "error", err)
	}
	return msgs, nil
}

// CloseSession closes a session. Only admins may close; closing twice is
// not an error.
func (s *ChatService) CloseSession(ctx context.Context, id auth.Identity, sessionID string) (*models.ChatSession, error) {
	if !id.IsAdmin() {
		return nil, common.ErrForbidden
	}
	session, err := s.repomanager.ChatSessions(s.db).Close(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "chat session closed", "session_id", session.ID, "by", id.UserID)
	s.notifier.SessionClosed(session)
	return session, nil
}

// ActiveSessionUserIDs lists owners of active sessions; admin connections
// join these rooms on connect.
func (s *ChatService) ActiveSessionUserIDs(ctx context.Context) ([]string, error) {
	return s.repomanager.ChatSessions(s.db).ActiveUserIDs(ctx)
}
