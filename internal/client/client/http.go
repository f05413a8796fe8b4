package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/dmitrijs2005/fintrack/internal/netx"
)

// HTTPClient calls the REST API. It is safe for concurrent use.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  logging.Logger

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration, logger logging.Logger) *HTTPClient {
	if logger == nil {
		logger = logging.Nop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
		logger:  logger.With("module", "client"),
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// BaseURL is the server root the client was created with.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t := c.Token(); t != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+t)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug(ctx, "request failed", "method", method, "path", path, "error", err)
		return mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb)
		c.logger.Debug(ctx, "request rejected", "method", method, "path", path, "status", resp.StatusCode)
		return &APIError{Status: resp.StatusCode, Message: eb.Message, Fields: eb.Errors, kind: classifyStatus(resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrServerFault, err)
	}
	return nil
}

func (c *HTTPClient) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	var res AuthResult
	in := map[string]string{"email": email, "password": password, "name": name}
	if err := c.do(ctx, http.MethodPost, "/api/users/register", in, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/users/login", in, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

func (c *HTTPClient) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/users/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]User, error) {
	var list []User
	return list, c.do(ctx, http.MethodGet, "/api/admin/users", nil, &list)
}

// SyncExpenses uploads a batch and returns the canonical copies.
func (c *HTTPClient) SyncExpenses(ctx context.Context, batch []ExpenseInput) ([]Expense, error) {
	var out []Expense
	in := struct {
		Expenses []ExpenseInput `json:"expenses"`
	}{Expenses: batch}
	if err := c.do(ctx, http.MethodPost, "/api/expenses/sync", in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListExpenses(ctx context.Context) ([]Expense, error) {
	var list []Expense
	return list, c.do(ctx, http.MethodGet, "/api/expenses", nil, &list)
}

func (c *HTTPClient) UpdateExpense(ctx context.Context, serverID string, in ExpenseInput) (*Expense, error) {
	var e Expense
	if err := c.do(ctx, http.MethodPut, "/api/expenses/"+url.PathEscape(serverID), in, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *HTTPClient) DeleteExpense(ctx context.Context, serverID string) error {
	return c.do(ctx, http.MethodDelete, "/api/expenses/"+url.PathEscape(serverID), nil, nil)
}

type chatMessageBody struct {
	Message   string `json:"message"`
	ClientID  string `json:"client_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func (c *HTTPClient) PostChatMessage(ctx context.Context, text, clientID string) (*ChatMessage, error) {
	var m ChatMessage
	if err := c.do(ctx, http.MethodPost, "/api/chat/message", chatMessageBody{Message: text, ClientID: clientID}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) PostAdminMessage(ctx context.Context, userID, sessionID, text, clientID string) (*ChatMessage, error) {
	var m ChatMessage
	in := chatMessageBody{Message: text, ClientID: clientID, UserID: userID, SessionID: sessionID}
	if err := c.do(ctx, http.MethodPost, "/api/chat/admin/message", in, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) ChatHistory(ctx context.Context) ([]ChatMessage, error) {
	var list []ChatMessage
	return list, c.do(ctx, http.MethodGet, "/api/chat/messages", nil, &list)
}

func (c *HTTPClient) ListSessions(ctx context.Context, status string) ([]SessionSummary, error) {
	path := "/api/admin/chat/sessions"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var list []SessionSummary
	return list, c.do(ctx, http.MethodGet, path, nil, &list)
}

func (c *HTTPClient) SessionMessages(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	var list []ChatMessage
	return list, c.do(ctx, http.MethodGet, "/api/admin/chat/sessions/"+url.PathEscape(sessionID)+"/messages", nil, &list)
}

func (c *HTTPClient) CloseSession(ctx context.Context, sessionID string) (*ChatSession, error) {
	var s ChatSession
	if err := c.do(ctx, http.MethodPost, "/api/admin/chat/sessions/"+url.PathEscape(sessionID)+"/close", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) CreateSupportMessage(ctx context.Context, subject, message string) (*SupportMessage, error) {
	var m SupportMessage
	in := map[string]string{"subject": subject, "message": message}
	if err := c.do(ctx, http.MethodPost, "/api/support/messages", in, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) MySupportMessages(ctx context.Context) ([]SupportMessage, error) {
	var list []SupportMessage
	return list, c.do(ctx, http.MethodGet, "/api/support/messages", nil, &list)
}

func (c *HTTPClient) AllSupportMessages(ctx context.Context) ([]SupportMessage, error) {
	var list []SupportMessage
	return list, c.do(ctx, http.MethodGet, "/api/admin/support-messages", nil, &list)
}

func (c *HTTPClient) RespondSupportMessage(ctx context.Context, id, response string) (*SupportMessage, error) {
	var m SupportMessage
	in := map[string]string{"response": response}
	if err := c.do(ctx, http.MethodPost, "/api/admin/support-messages/"+url.PathEscape(id)+"/respond", in, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) ReceiptDownloadURL(ctx context.Context, serverID string) (*ReceiptURL, error) {
	var u ReceiptURL
	if err := c.do(ctx, http.MethodGet, "/api/expenses/"+url.PathEscape(serverID)+"/receipt", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UploadReceipt asks the server for a presigned URL and PUTs body to it.
func (c *HTTPClient) UploadReceipt(ctx context.Context, serverID, contentType string, body io.Reader) (*ReceiptURL, error) {
	var u ReceiptURL
	if err := c.do(ctx, http.MethodPost, "/api/expenses/"+url.PathEscape(serverID)+"/receipt", nil, &u); err != nil {
		return nil, err
	}
	if err := netx.UploadToPresignedURL(ctx, c.http, u.URL, contentType, body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &u, nil
}
