// Package httpapi exposes the REST surface of the server: accounts,
// expenses, chat history and support tickets. Live chat traffic goes through
// the websocket handler mounted at /ws.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/dmitrijs2005/fintrack/internal/server/auth"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
	"github.com/dmitrijs2005/fintrack/internal/server/services"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type UserService interface {
	Register(ctx context.Context, email, password, name string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
	Profile(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context, id auth.Identity) ([]*models.User, error)
}

type ExpenseService interface {
	List(ctx context.Context, userID string) ([]*models.Expense, error)
	Create(ctx context.Context, userID string, in services.ExpenseInput) (*models.Expense, error)
	Update(ctx context.Context, userID, id string, in services.ExpenseInput) (*models.Expense, error)
	Delete(ctx context.Context, userID, id string) error
	Sync(ctx context.Context, userID string, batch []services.ExpenseInput) ([]*models.Expense, error)
	ReceiptUploadURL(ctx context.Context, userID, id string) (*services.ReceiptURL, error)
	ReceiptDownloadURL(ctx context.Context, userID, id string) (*services.ReceiptURL, error)
}

type ChatService interface {
	PostUserMessage(ctx context.Context, id auth.Identity, text, clientID string) (*models.ChatMessage, error)
	PostAdminMessage(ctx context.Context, id auth.Identity, userID, sessionID, text, clientID string) (*models.ChatMessage, error)
	UserMessages(ctx context.Context, id auth.Identity) ([]*models.ChatMessage, error)
	ListSessions(ctx context.Context, id auth.Identity, status string) ([]*models.SessionSummary, error)
	SessionMessages(ctx context.Context, id auth.Identity, sessionID string) ([]*models.ChatMessage, error)
	CloseSession(ctx context.Context, id auth.Identity, sessionID string) (*models.ChatSession, error)
}

type SupportService interface {
	Create(ctx context.Context, id auth.Identity, subject, message string) (*models.SupportMessage, error)
	Mine(ctx context.Context, id auth.Identity) ([]*models.SupportMessage, error)
	ListAll(ctx context.Context, id auth.Identity) ([]*models.SupportMessage, error)
	Respond(ctx context.Context, id auth.Identity, ticketID, response string) (*models.SupportMessage, error)
}

// Deps bundles what the API needs. Realtime and Ping are optional.
type Deps struct {
	Users    UserService
	Expenses ExpenseService
	Chat     ChatService
	Support  SupportService
	Realtime http.Handler
	Ping     func(ctx context.Context) error
}

type API struct {
	router *mux.Router
	deps   Deps
	logger logging.Logger
}

func New(d Deps, l logging.Logger) *API {
	a := &API{
		router: mux.NewRouter(),
		deps:   d,
		logger: l.With("module", "http_api"),
	}
	a.setupRoutes()
	return a
}

func (a *API) setupRoutes() {
	a.router.Use(a.logRequests)

	a.router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	if a.deps.Realtime != nil {
		a.router.Handle("/ws", a.deps.Realtime)
	}

	public := a.router.PathPrefix("/api").Subrouter()
	public.HandleFunc("/users/register", a.handleRegister).Methods(http.MethodPost)
	public.HandleFunc("/users/login", a.handleLogin).Methods(http.MethodPost)

	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/users/profile", a.handleProfile).Methods(http.MethodGet)

	protected.HandleFunc("/expenses", a.handleListExpenses).Methods(http.MethodGet)
	protected.HandleFunc("/expenses", a.handleCreateExpense).Methods(http.MethodPost)
	protected.HandleFunc("/expenses/sync", a.handleSyncExpenses).Methods(http.MethodPost)
	protected.HandleFunc("/expenses/{id}", a.handleUpdateExpense).Methods(http.MethodPut)
	protected.HandleFunc("/expenses/{id}", a.handleDeleteExpense).Methods(http.MethodDelete)
	protected.HandleFunc("/expenses/{id}/receipt", a.handleReceiptUpload).Methods(http.MethodPost)
	protected.HandleFunc("/expenses/{id}/receipt", a.handleReceiptDownload).Methods(http.MethodGet)

	protected.HandleFunc("/chat/messages", a.handleChatMessages).Methods(http.MethodGet)
	protected.HandleFunc("/chat/message", a.handleChatMessage).Methods(http.MethodPost)
	protected.HandleFunc("/chat/admin/message", a.handleAdminChatMessage).Methods(http.MethodPost)

	protected.HandleFunc("/support/messages", a.handleMySupportMessages).Methods(http.MethodGet)
	protected.HandleFunc("/support/messages", a.handleCreateSupportMessage).Methods(http.MethodPost)

	protected.HandleFunc("/admin/users", a.handleListUsers).Methods(http.MethodGet)
	protected.HandleFunc("/admin/chat/sessions", a.handleListSessions).Methods(http.MethodGet)
	protected.HandleFunc("/admin/chat/sessions/{id}/messages", a.handleSessionMessages).Methods(http.MethodGet)
	protected.HandleFunc("/admin/chat/sessions/{id}/close", a.handleCloseSession).Methods(http.MethodPost)
	protected.HandleFunc("/admin/support-messages", a.handleAllSupportMessages).Methods(http.MethodGet)
	protected.HandleFunc("/admin/support-messages/{id}/respond", a.handleRespondSupportMessage).Methods(http.MethodPost)
}

// Handler returns the router wrapped in CORS handling for origins.
func (a *API) Handler(origins []string) http.Handler {
	// Credentials are not allowed together with the wildcard origin.
	allowCredentials := true
	for _, o := range origins {
		if o == "*" {
			allowCredentials = false
		}
	}

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: allowCredentials,
	}).Handler(a.router)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.deps.Ping != nil {
		if err := a.deps.Ping(r.Context()); err != nil {
			a.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
