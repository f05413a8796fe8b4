package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/chatmessages"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/chatsessions"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/expenses"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/supportmessages"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// memStore backs every fake repository with plain maps so services can be
// exercised end to end without a database.
type memStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]*models.User
	expenses map[string]*models.Expense
	sessions map[string]*models.ChatSession
	messages []*models.ChatMessage
	tickets  map[string]*models.SupportMessage

	expenseErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		expenses: map[string]*models.Expense{},
		sessions: map[string]*models.ChatSession{},
		tickets:  map[string]*models.SupportMessage{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

type fakeRepoManager struct {
	store *memStore
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return &fakeUsers{m.store} }
func (m *fakeRepoManager) Expenses(dbx.DBTX) expenses.Repository        { return &fakeExpenses{m.store} }
func (m *fakeRepoManager) ChatSessions(dbx.DBTX) chatsessions.Repository {
	return &fakeSessions{m.store}
}
func (m *fakeRepoManager) ChatMessages(dbx.DBTX) chatmessages.Repository {
	return &fakeMessages{m.store}
}
func (m *fakeRepoManager) SupportMessages(dbx.DBTX) supportmessages.Repository {
	return &fakeTickets{m.store}
}

// --- users ---

type fakeUsers struct{ s *memStore }

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, x := range f.s.users {
		if x.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *u
	c.ID = f.s.nextID("user")
	c.CreatedAt = time.Now()
	f.s.users[c.ID] = &c
	return &c, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, x := range f.s.users {
		if x.Email == email {
			c := *x
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if x, ok := f.s.users[id]; ok {
		c := *x
		return &c, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) List(context.Context) ([]*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]*models.User, 0, len(f.s.users))
	for _, x := range f.s.users {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- expenses ---

type fakeExpenses struct{ s *memStore }

func (f *fakeExpenses) Create(_ context.Context, e *models.Expense) (*models.Expense, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.expenseErr != nil {
		return nil, f.s.expenseErr
	}
	c := *e
	c.ID = f.s.nextID("exp")
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	f.s.expenses[c.ID] = &c
	r := c
	return &r, nil
}

func (f *fakeExpenses) Upsert(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	f.s.mu.Lock()
	if f.s.expenseErr != nil {
		f.s.mu.Unlock()
		return nil, f.s.expenseErr
	}
	for _, x := range f.s.expenses {
		if x.UserID == e.UserID && x.ClientID == e.ClientID {
			x.Amount, x.Category, x.Description, x.Date = e.Amount, e.Category, e.Description, e.Date
			x.UpdatedAt = time.Now()
			c := *x
			f.s.mu.Unlock()
			return &c, nil
		}
	}
	f.s.mu.Unlock()
	return f.Create(ctx, e)
}

func (f *fakeExpenses) Update(_ context.Context, e *models.Expense) (*models.Expense, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	x, ok := f.s.expenses[e.ID]
	if !ok || x.UserID != e.UserID {
		return nil, common.ErrorNotFound
	}
	x.Amount, x.Category, x.Description, x.Date = e.Amount, e.Category, e.Description, e.Date
	c := *x
	return &c, nil
}

func (f *fakeExpenses) Delete(_ context.Context, userID, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	x, ok := f.s.expenses[id]
	if !ok || x.UserID != userID {
		return common.ErrorNotFound
	}
	delete(f.s.expenses, id)
	return nil
}

func (f *fakeExpenses) GetByID(_ context.Context, userID, id string) (*models.Expense, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	x, ok := f.s.expenses[id]
	if !ok || x.UserID != userID {
		return nil, common.ErrorNotFound
	}
	c := *x
	return &c, nil
}

func (f *fakeExpenses) ListByUser(_ context.Context, userID string) ([]*models.Expense, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Expense
	for _, x := range f.s.expenses {
		if x.UserID == userID {
			c := *x
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeExpenses) SetReceiptKey(_ context.Context, userID, id, key string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	x, ok := f.s.expenses[id]
	if !ok || x.UserID != userID {
		return common.ErrorNotFound
	}
	x.ReceiptKey = key
	return nil
}

// --- chat sessions ---

type fakeSessions struct{ s *memStore }

func (f *fakeSessions) activeLocked(userID string) *models.ChatSession {
	for _, x := range f.s.sessions {
		if x.UserID == userID && x.Status == common.SessionActive {
			return x
		}
	}
	return nil
}

func (f *fakeSessions) EnsureActive(_ context.Context, userID string) (*models.ChatSession, bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if x := f.activeLocked(userID); x != nil {
		c := *x
		return &c, false, nil
	}
	now := time.Now()
	x := &models.ChatSession{ID: f.s.nextID("sess"), UserID: userID, Status: common.SessionActive, CreatedAt: now, UpdatedAt: now}
	f.s.sessions[x.ID] = x
	c := *x
	return &c, true, nil
}

func (f *fakeSessions) GetActive(_ context.Context, userID string) (*models.ChatSession, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if x := f.activeLocked(userID); x != nil {
		c := *x
		return &c, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeSessions) GetByID(_ context.Context, id string) (*models.ChatSession, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if x, ok := f.s.sessions[id]; ok {
		c := *x
		return &c, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeSessions) Touch(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if x, ok := f.s.sessions[id]; ok {
		x.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakeSessions) Close(_ context.Context, id string) (*models.ChatSession, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	x, ok := f.s.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if x.Status != common.SessionClosed {
		now := time.Now()
		x.Status = common.SessionClosed
		x.ClosedAt = &now
	}
	c := *x
	return &c, nil
}

func (f *fakeSessions) ListSummaries(_ context.Context, status string) ([]*models.SessionSummary, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.SessionSummary
	for _, x := range f.s.sessions {
		if status == "" || x.Status == status {
			out = append(out, &models.SessionSummary{ChatSession: *x})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSessions) ActiveUserIDs(context.Context) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []string
	for _, x := range f.s.sessions {
		if x.Status == common.SessionActive {
			out = append(out, x.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// --- chat messages ---

type fakeMessages struct{ s *memStore }

func (f *fakeMessages) Create(_ context.Context, m *models.ChatMessage) (*models.ChatMessage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if m.ClientID != "" {
		for _, x := range f.s.messages {
			if x.UserID == m.UserID && x.ClientID == m.ClientID {
				c := *x
				return &c, nil
			}
		}
	}
	c := *m
	c.ID = f.s.nextID("msg")
	c.ReadByAdmin = m.IsAdmin
	c.ReadByUser = !m.IsAdmin
	c.CreatedAt = time.Now()
	f.s.messages = append(f.s.messages, &c)
	r := c
	return &r, nil
}

func (f *fakeMessages) ListBySession(_ context.Context, sessionID string) ([]*models.ChatMessage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.ChatMessage
	for _, x := range f.s.messages {
		if x.SessionID == sessionID {
			c := *x
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeMessages) ListByUser(_ context.Context, userID string) ([]*models.ChatMessage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.ChatMessage
	for _, x := range f.s.messages {
		if x.UserID == userID {
			c := *x
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeMessages) MarkReadByAdmin(_ context.Context, sessionID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, x := range f.s.messages {
		if x.SessionID == sessionID {
			x.ReadByAdmin = true
		}
	}
	return nil
}

func (f *fakeMessages) MarkReadByUser(_ context.Context, userID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, x := range f.s.messages {
		if x.UserID == userID {
			x.ReadByUser = true
		}
	}
	return nil
}

// --- support tickets ---

type fakeTickets struct{ s *memStore }

func (f *fakeTickets) Create(_ context.Context, m *models.SupportMessage) (*models.SupportMessage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c := *m
	c.ID = f.s.nextID("ticket")
	c.Status = models.SupportOpen
	c.CreatedAt = time.Now()
	f.s.tickets[c.ID] = &c
	r := c
	return &r, nil
}

func (f *fakeTickets) ListByUser(_ context.Context, userID string) ([]*models.SupportMessage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.SupportMessage
	for _, x := range f.s.tickets {
		if x.UserID == userID {
			out = append(out, x)
		}
	}
	return out, nil
}

func (f *fakeTickets) ListAll(context.Context) ([]*models.SupportMessage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.SupportMessage
	for _, x := range f.s.tickets {
		out = append(out, x)
	}
	return out, nil
}

func (f *fakeTickets) Respond(_ context.Context, id, response string) (*models.SupportMessage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	x, ok := f.s.tickets[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	now := time.Now()
	x.Status = models.SupportResponded
	x.AdminResponse = response
	x.ResponseAt = &now
	c := *x
	return &c, nil
}
