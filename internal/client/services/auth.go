// Package services holds the CLI's application services. Writes go to the
// local store first and are pushed to the server by the sync engine;
// reads are served locally.
package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/store"
	"github.com/dmitrijs2005/fintrack/internal/common"
)

// ErrNotSignedIn is returned by operations that need an identity.
var ErrNotSignedIn = errors.New("not signed in")

// AuthService signs the user in and keeps the credential between runs.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*store.Session, error)
	Login(ctx context.Context, email, password string) (*store.Session, error)
	// Restore loads a saved credential. It returns nil when there is none.
	Restore(ctx context.Context) (*store.Session, error)
	Logout(ctx context.Context) error
	// Current is the signed-in session or nil.
	Current() *store.Session
}

type AuthRemote interface {
	Register(ctx context.Context, email, password, name string) (*client.AuthResult, error)
	Login(ctx context.Context, email, password string) (*client.AuthResult, error)
	SetToken(token string)
}

type SessionStore interface {
	SaveSession(ctx context.Context, s store.Session) error
	LoadSession(ctx context.Context) (*store.Session, error)
	ClearSession(ctx context.Context) error
}

type authService struct {
	remote AuthRemote
	store  SessionStore

	mu      sync.RWMutex
	current *store.Session
}

func NewAuthService(r AuthRemote, s SessionStore) AuthService {
	return &authService{remote: r, store: s}
}

func validateCredentials(email, password string) error {
	ve := common.NewValidationError()
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		ve.Add("email", "must be a valid email address")
	}
	if len(password) < 6 {
		ve.Add("password", "must be at least 6 characters")
	}
	return ve.OrNil()
}

func fieldError(field, msg string) error {
	ve := common.NewValidationError()
	ve.Add(field, msg)
	return ve
}

func (a *authService) Register(ctx context.Context, email, password, name string) (*store.Session, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, fieldError("name", "is required")
	}
	res, err := a.remote.Register(ctx, email, password, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, res)
}

func (a *authService) Login(ctx context.Context, email, password string) (*store.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fieldError("credentials", "email and password are required")
	}
	res, err := a.remote.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, res)
}

func (a *authService) establish(ctx context.Context, res *client.AuthResult) (*store.Session, error) {
	if res == nil || res.User == nil || res.Token == "" {
		return nil, client.ErrServerFault
	}
	s := store.Session{
		Token:  res.Token,
		UserID: res.User.ID,
		Role:   res.User.Role,
		Email:  res.User.Email,
		Name:   res.User.Name,
	}
	if err := a.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	a.set(&s)
	return &s, nil
}

func (a *authService) Restore(ctx context.Context) (*store.Session, error) {
	s, err := a.store.LoadSession(ctx)
	if err != nil {
		return nil, err
	}
	a.set(s)
	return s, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.set(nil)
	return a.store.ClearSession(ctx)
}

func (a *authService) set(s *store.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = s
	if s == nil {
		a.remote.SetToken("")
		return
	}
	a.remote.SetToken(s.Token)
}

func (a *authService) Current() *store.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return nil
	}
	s := *a.current
	return &s
}
