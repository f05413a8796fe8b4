package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newTestServer(t *testing.T, status int, reply any) (*HTTPClient, *recorded) {
	t.Helper()
	rec := &recorded{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.auth = r.Header.Get("Authorization")
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if reply != nil {
			_ = json.NewEncoder(w).Encode(reply)
		}
	}))
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", time.Second, nil), rec
}

func TestLogin_StoresToken(t *testing.T) {
	c, rec := newTestServer(t, http.StatusOK, AuthResult{Token: "tok", User: &User{ID: "u1", Role: "user"}})

	res, err := c.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "tok", c.Token())
	assert.Equal(t, "/api/users/login", rec.path)
	assert.Equal(t, "a@b.c", rec.body["email"])
	assert.Empty(t, rec.auth)

	_, err = c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", rec.auth)
	assert.Equal(t, "/api/users/profile", rec.path)
}

func TestRegister(t *testing.T) {
	c, rec := newTestServer(t, http.StatusCreated, AuthResult{Token: "tok", User: &User{ID: "u1"}})

	_, err := c.Register(context.Background(), "a@b.c", "secret", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "/api/users/register", rec.path)
	assert.Equal(t, "Ann", rec.body["name"])
	assert.Equal(t, "tok", c.Token())
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusBadRequest, ErrRejected},
		{http.StatusForbidden, ErrRejected},
		{http.StatusInternalServerError, ErrServerFault},
		{http.StatusServiceUnavailable, ErrServerFault},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, _ := newTestServer(t, tt.status, map[string]any{"message": "nope"})
			err := c.DeleteExpense(context.Background(), "e1")
			require.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestValidationFieldsAreKept(t *testing.T) {
	c, _ := newTestServer(t, http.StatusBadRequest, map[string]any{
		"message": "validation failed",
		"errors":  map[string]string{"amount": "must be positive"},
	})

	_, err := c.UpdateExpense(context.Background(), "e1", ExpenseInput{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, map[string]string{"amount": "must be positive"}, apiErr.Fields)
	assert.Contains(t, err.Error(), "amount: must be positive")
	assert.False(t, IsTransient(err))
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	c := New(addr, time.Second, nil)
	_, err := c.ChatHistory(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsTransient(err))
}

func TestTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := New(ts.URL, 50*time.Millisecond, nil)
	_, err := c.ListExpenses(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSyncExpenses(t *testing.T) {
	reply := []Expense{{ID: "s1", ClientID: "l1", Amount: decimal.RequireFromString("2.50")}}
	c, rec := newTestServer(t, http.StatusOK, reply)

	out, err := c.SyncExpenses(context.Background(), []ExpenseInput{{ClientID: "l1", Amount: decimal.RequireFromString("2.50"), Category: "food", Date: "2026-01-01"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "s1", out[0].ID)
	assert.Equal(t, "/api/expenses/sync", rec.path)

	items := rec.body["expenses"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "l1", items[0].(map[string]any)["client_id"])
	assert.Equal(t, "2.5", items[0].(map[string]any)["amount"])
}

func TestChatCalls(t *testing.T) {
	c, rec := newTestServer(t, http.StatusCreated, ChatMessage{ID: "m1", ClientID: "c1"})

	m, err := c.PostChatMessage(context.Background(), "hi", "c1")
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "/api/chat/message", rec.path)

	_, err = c.PostAdminMessage(context.Background(), "u1", "s1", "hello", "c2")
	require.NoError(t, err)
	assert.Equal(t, "/api/chat/admin/message", rec.path)
	assert.Equal(t, "u1", rec.body["user_id"])
	assert.Equal(t, "s1", rec.body["session_id"])

	_, err = c.CloseSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "/api/admin/chat/sessions/s1/close", rec.path)
	assert.Equal(t, http.MethodPost, rec.method)
}

func TestListSessionsStatusQuery(t *testing.T) {
	c, rec := newTestServer(t, http.StatusOK, []SessionSummary{{ChatSession: ChatSession{ID: "s1"}, UnreadCount: 2}})

	list, err := c.ListSessions(context.Background(), "active")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].UnreadCount)
	assert.Equal(t, "status=active", rec.query)
}

func TestSupportCalls(t *testing.T) {
	c, rec := newTestServer(t, http.StatusOK, SupportMessage{ID: "t1", Status: "responded"})

	_, err := c.CreateSupportMessage(context.Background(), "subj", "body")
	require.NoError(t, err)
	assert.Equal(t, "/api/support/messages", rec.path)

	m, err := c.RespondSupportMessage(context.Background(), "t1", "done")
	require.NoError(t, err)
	assert.Equal(t, "responded", m.Status)
	assert.Equal(t, "/api/admin/support-messages/t1/respond", rec.path)
	assert.Equal(t, "done", rec.body["response"])
}

func TestUploadReceipt(t *testing.T) {
	var uploaded []byte
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploaded, _ = io.ReadAll(r.Body)
	}))
	defer storage.Close()

	c, rec := newTestServer(t, http.StatusOK, ReceiptURL{Key: "receipts/u1/e1", URL: storage.URL + "/put"})

	u, err := c.UploadReceipt(context.Background(), "e1", "image/jpeg", bytes.NewReader([]byte("jpeg")))
	require.NoError(t, err)
	assert.Equal(t, "receipts/u1/e1", u.Key)
	assert.Equal(t, "/api/expenses/e1/receipt", rec.path)
	assert.Equal(t, []byte("jpeg"), uploaded)
}

func TestUploadReceipt_StorageFailure(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer storage.Close()

	c, _ := newTestServer(t, http.StatusOK, ReceiptURL{URL: storage.URL})

	_, err := c.UploadReceipt(context.Background(), "e1", "", bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestMalformedReplyIsServerFault(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer ts.Close()

	_, err := New(ts.URL, time.Second, nil).Profile(context.Background())
	require.ErrorIs(t, err, ErrServerFault)
}
