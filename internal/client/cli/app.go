package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/config"
	"github.com/dmitrijs2005/fintrack/internal/client/connectivity"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/realtime"
	"github.com/dmitrijs2005/fintrack/internal/client/services"
	"github.com/dmitrijs2005/fintrack/internal/client/store"
	"github.com/dmitrijs2005/fintrack/internal/client/syncer"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type syncRunner interface {
	StartSync(ctx context.Context) (bool, error)
}

type deadLetterSource interface {
	DeadLetters(ctx context.Context, ownerID string) ([]models.DeadLetter, error)
}

type chatChannel interface {
	State() realtime.State
	SessionID() string
	Open(ctx context.Context) error
	Close() error
	Events() <-chan realtime.Event
}

type onlineChecker interface {
	IsOnline() bool
}

type App struct {
	config *config.Config
	logger logging.Logger

	auth     services.AuthService
	expenses services.ExpenseService
	chat     services.ChatService
	support  services.SupportService

	syncer  syncRunner
	letters deadLetterSource
	channel chatChannel
	online  onlineChecker
	monitor *connectivity.Monitor

	closers []io.Closer
	reader  *bufio.Reader
	out     io.Writer
}

// NewApp opens the local store and wires the remote API, the connectivity
// monitor, the sync engine and the chat channel around it.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	st, err := store.Open(ctx, c.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	api := client.New(c.ServerURL, c.RequestTimeout, logger)

	probe, err := client.NewHealthProbe(c.HealthAddr, c.RequestTimeout)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("health probe: %w", err)
	}

	channel, err := realtime.NewChannel(c.ServerURL, api.Token, st, logger)
	if err != nil {
		_ = probe.Close()
		_ = st.Close()
		return nil, fmt.Errorf("realtime channel: %w", err)
	}

	monitor := connectivity.NewMonitor(probe, c.OnlineCheckInterval, c.ReconnectDebounce, logger)
	auth := services.NewAuthService(api, st)

	a := &App{
		config:  c,
		logger:  logger.With("module", "cli"),
		auth:    auth,
		letters: st,
		channel: channel,
		online:  monitor,
		monitor: monitor,
		closers: []io.Closer{probe, st},
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}

	engine := syncer.New(st, api, monitor, a.userID, logger)
	engine.OnUnauthorized(a.onUnauthorized)
	a.syncer = engine

	a.expenses = services.NewExpenseService(st, api, a.userID, a.triggerSync, logger)
	a.chat = services.NewChatService(st, api, channel, auth.Current, a.triggerSync, logger)
	a.support = services.NewSupportService(api, a.role)

	monitor.OnReconnect(a.onReconnect)
	return a, nil
}

// Run restores the saved session, starts the connectivity monitor and
// blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	printlnFn("Welcome to fintrack (type 'help' for commands)")

	if s, err := a.auth.Restore(ctx); err != nil {
		a.logger.Warn(ctx, "restore session", "error", err)
	} else if s != nil {
		printlnFn("Signed in as", s.Email)
	}

	a.monitor.Start(ctx)
	go a.watchEvents(ctx)

	if a.online.IsOnline() {
		a.onReconnect(ctx)
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}

func (a *App) close() {
	if a.channel != nil {
		_ = a.channel.Close()
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func (a *App) mode() Mode {
	if a.online != nil && a.online.IsOnline() {
		return ModeOnline
	}
	return ModeOffline
}

func (a *App) getStatus() string {
	s := ""
	if cur := a.auth.Current(); cur != nil {
		s = cur.Email + " "
	}
	s += string(a.mode())
	return fmt.Sprintf("(%s)", s)
}

func (a *App) isLoggedIn() bool {
	return a.auth.Current() != nil
}

func (a *App) isAdmin() bool {
	return a.role() == common.RoleAdmin
}

func (a *App) userID() string {
	if s := a.auth.Current(); s != nil {
		return s.UserID
	}
	return ""
}

func (a *App) role() string {
	if s := a.auth.Current(); s != nil {
		return s.Role
	}
	return ""
}

// onReconnect joins the chat relay and pushes whatever is pending.
func (a *App) onReconnect(ctx context.Context) {
	if !a.isLoggedIn() {
		return
	}
	a.openChannel(ctx)
	a.runSync(ctx)
}

func (a *App) openChannel(ctx context.Context) {
	if a.channel.State() != realtime.StateDisconnected {
		return
	}
	if err := a.channel.Open(ctx); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.onUnauthorized(ctx)
			return
		}
		a.logger.Warn(ctx, "realtime connect failed", "error", err)
	}
}

func (a *App) runSync(ctx context.Context) {
	ran, err := a.syncer.StartSync(ctx)
	if err != nil {
		a.logger.Warn(ctx, "sync finished with errors", "error", err)
		return
	}
	if ran {
		a.logger.Debug(ctx, "sync finished")
	}
}

// triggerSync is handed to the services; it must not block the caller.
func (a *App) triggerSync(ctx context.Context) {
	if !a.online.IsOnline() {
		return
	}
	go a.onReconnect(context.WithoutCancel(ctx))
}

// onUnauthorized drops the credential so the next command asks for a login.
func (a *App) onUnauthorized(ctx context.Context) {
	if !a.isLoggedIn() {
		return
	}
	_ = a.channel.Close()
	if err := a.auth.Logout(ctx); err != nil {
		a.logger.Error(ctx, "clear session", "error", err)
	}
	printlnFn("Your session has expired, please login again")
}

func (a *App) watchEvents(ctx context.Context) {
	events := a.channel.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.printEvent(ev)
		}
	}
}

func (a *App) printEvent(ev realtime.Event) {
	me := a.userID()
	switch ev.Kind {
	case realtime.EventMessage:
		if ev.Message == nil || (ev.Message.UserID == me && !ev.Message.IsAdmin) {
			return
		}
		if a.isAdmin() && ev.Message.IsAdmin {
			return
		}
		fmt.Fprintf(a.out, "\n[chat] %s: %s\n", speaker(ev.Message, a.isAdmin()), ev.Message.Message)
	case realtime.EventTyping:
		if ev.Admin {
			fmt.Fprintln(a.out, "\n[chat] support is typing...")
		} else if a.isAdmin() {
			fmt.Fprintf(a.out, "\n[chat] %s is typing...\n", ev.UserID)
		}
	case realtime.EventSessionClosed:
		fmt.Fprintf(a.out, "\n[chat] session %s was closed\n", ev.SessionID)
	case realtime.EventError:
		fmt.Fprintf(a.out, "\n[chat] error: %s\n", ev.Text)
	}
}
