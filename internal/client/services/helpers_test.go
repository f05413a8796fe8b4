package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/realtime"
	"github.com/dmitrijs2005/fintrack/internal/client/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type triggerCounter struct {
	mu sync.Mutex
	n  int
}

func (c *triggerCounter) fire(context.Context) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *triggerCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func fixedNow() time.Time {
	return time.Date(2026, 5, 17, 10, 0, 0, 0, time.UTC)
}

// fakeChannel stores like the real channel but never talks to a server.
type fakeChannel struct {
	store  *store.Store
	state  realtime.State
	typing []string
}

func (f *fakeChannel) State() realtime.State { return f.state }

func (f *fakeChannel) SendUserMessage(ctx context.Context, userID, text string) (*models.ChatMessage, error) {
	m := &models.ChatMessage{ID: uuid.NewString(), UserID: userID, AuthorID: userID, Message: text, Timestamp: fixedNow().UnixMilli()}
	return m, f.store.PutChatMessage(ctx, m)
}

func (f *fakeChannel) SendAdminMessage(ctx context.Context, authorID, userID, sessionID, text string) (*models.ChatMessage, error) {
	m := &models.ChatMessage{ID: uuid.NewString(), UserID: userID, AuthorID: authorID, SessionID: sessionID, Message: text, IsAdmin: true, Timestamp: fixedNow().UnixMilli()}
	return m, f.store.PutChatMessage(ctx, m)
}

func (f *fakeChannel) SendTyping(target string) error {
	f.typing = append(f.typing, target)
	return nil
}

type fakeRemote struct {
	token    string
	auth     *client.AuthResult
	authErr  error
	history  []client.ChatMessage
	sessions []client.SessionSummary
	lastSess string

	uploadedID string
	support    []client.SupportMessage
}

func (f *fakeRemote) Register(ctx context.Context, email, password, name string) (*client.AuthResult, error) {
	return f.auth, f.authErr
}

func (f *fakeRemote) Login(ctx context.Context, email, password string) (*client.AuthResult, error) {
	return f.auth, f.authErr
}

func (f *fakeRemote) SetToken(token string) { f.token = token }

func (f *fakeRemote) ChatHistory(ctx context.Context) ([]client.ChatMessage, error) {
	return f.history, nil
}

func (f *fakeRemote) SessionMessages(ctx context.Context, sessionID string) ([]client.ChatMessage, error) {
	f.lastSess = sessionID
	return f.history, nil
}

func (f *fakeRemote) ListSessions(ctx context.Context, status string) ([]client.SessionSummary, error) {
	return f.sessions, nil
}

func (f *fakeRemote) UploadReceipt(ctx context.Context, serverID, contentType string, body io.Reader) (*client.ReceiptURL, error) {
	f.uploadedID = serverID
	return &client.ReceiptURL{Key: "receipts/" + serverID}, nil
}

func (f *fakeRemote) ReceiptDownloadURL(ctx context.Context, serverID string) (*client.ReceiptURL, error) {
	return &client.ReceiptURL{URL: "https://s3/" + serverID}, nil
}

func (f *fakeRemote) CreateSupportMessage(ctx context.Context, subject, message string) (*client.SupportMessage, error) {
	m := client.SupportMessage{ID: "t1", Subject: subject, Message: message, Status: "open"}
	f.support = append(f.support, m)
	return &m, nil
}

func (f *fakeRemote) MySupportMessages(ctx context.Context) ([]client.SupportMessage, error) {
	return f.support, nil
}

func (f *fakeRemote) AllSupportMessages(ctx context.Context) ([]client.SupportMessage, error) {
	return f.support, nil
}

func (f *fakeRemote) RespondSupportMessage(ctx context.Context, id, response string) (*client.SupportMessage, error) {
	return &client.SupportMessage{ID: id, Status: "responded", AdminResponse: response}, nil
}
