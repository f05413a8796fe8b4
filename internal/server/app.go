// Package server wires the fintrack server together: database and
// migrations, services, the REST API with its websocket endpoint, and the
// gRPC health service. It stops gracefully on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/dmitrijs2005/fintrack/internal/server/config"
	"github.com/dmitrijs2005/fintrack/internal/server/httpapi"
	"github.com/dmitrijs2005/fintrack/internal/server/realtime"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fintrack/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/fintrack/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	userService    *services.UserService
	expenseService *services.ExpenseService
	chatService    *services.ChatService
	supportService *services.SupportService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONSlogLogger(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		repomanager:    rm,
		userService:    services.NewUserService(db, rm, c),
		expenseService: services.NewExpenseService(db, rm, c),
		chatService:    services.NewChatService(db, rm, logger),
		supportService: services.NewSupportService(db, rm),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) seedAdmin(ctx context.Context) {
	created, err := app.userService.EnsureAdmin(ctx, app.config.AdminEmail, app.config.AdminPassword, app.config.AdminName)
	if err != nil {
		app.logger.Error(ctx, "failed to seed admin account", "error", err)
		return
	}
	if created {
		app.logger.Info(ctx, "admin account created", "email", app.config.AdminEmail)
	}
}

func (app *App) httpServer(ctx context.Context) *http.Server {
	hub := realtime.NewHub(app.logger)
	app.chatService.SetNotifier(hub)

	ws := realtime.NewHandler(ctx, hub, app.userService, app.chatService, app.config.AllowedOrigins, app.logger)

	api := httpapi.New(httpapi.Deps{
		Users:    app.userService,
		Expenses: app.expenseService,
		Chat:     app.chatService,
		Support:  app.supportService,
		Realtime: ws,
		Ping:     app.db.PingContext,
	}, app.logger)

	return &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           api.Handler(app.config.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (app *App) runHTTPServer(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	app.seedAdmin(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.runHTTPServer(gctx, app.httpServer(gctx))
	})

	g.Go(func() error {
		return gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db).Run(gctx)
	})

	err := g.Wait()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Warn(ctx, "failed to close database", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
