package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/fintrack/internal/server/services"
	"github.com/gorilla/mux"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.deps.Users.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	a.logger.Info(r.Context(), "user registered", "user_id", res.User.ID)
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.deps.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := a.deps.Users.Profile(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := a.deps.Users.ListUsers(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// expenses

func (a *API) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := a.deps.Expenses.List(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in services.ExpenseInput
	if !decode(w, r, &in) {
		return
	}
	e, err := a.deps.Expenses.Create(r.Context(), identity(r).UserID, in)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (a *API) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var in services.ExpenseInput
	if !decode(w, r, &in) {
		return
	}
	e, err := a.deps.Expenses.Update(r.Context(), identity(r).UserID, mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *API) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Expenses.Delete(r.Context(), identity(r).UserID, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "expense deleted"})
}

type syncRequest struct {
	Expenses []services.ExpenseInput `json:"expenses"`
}

func (a *API) handleSyncExpenses(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !decode(w, r, &req) {
		return
	}
	id := identity(r)
	out, err := a.deps.Expenses.Sync(r.Context(), id.UserID, req.Expenses)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	a.logger.Info(r.Context(), "expenses synced", "user_id", id.UserID, "count", len(out))
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleReceiptUpload(w http.ResponseWriter, r *http.Request) {
	u, err := a.deps.Expenses.ReceiptUploadURL(r.Context(), identity(r).UserID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleReceiptDownload(w http.ResponseWriter, r *http.Request) {
	u, err := a.deps.Expenses.ReceiptDownloadURL(r.Context(), identity(r).UserID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// chat

type chatMessageRequest struct {
	Message   string `json:"message"`
	ClientID  string `json:"client_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

func (a *API) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	list, err := a.deps.Chat.UserMessages(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := a.deps.Chat.PostUserMessage(r.Context(), identity(r), req.Message, req.ClientID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) handleAdminChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := a.deps.Chat.PostAdminMessage(r.Context(), identity(r), req.UserID, req.SessionID, req.Message, req.ClientID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := a.deps.Chat.ListSessions(r.Context(), identity(r), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	list, err := a.deps.Chat.SessionMessages(r.Context(), identity(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.deps.Chat.CloseSession(r.Context(), identity(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// support

type supportRequest struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Response string `json:"response"`
}

func (a *API) handleMySupportMessages(w http.ResponseWriter, r *http.Request) {
	list, err := a.deps.Support.Mine(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateSupportMessage(w http.ResponseWriter, r *http.Request) {
	var req supportRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := a.deps.Support.Create(r.Context(), identity(r), req.Subject, req.Message)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) handleAllSupportMessages(w http.ResponseWriter, r *http.Request) {
	list, err := a.deps.Support.ListAll(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleRespondSupportMessage(w http.ResponseWriter, r *http.Request) {
	var req supportRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := a.deps.Support.Respond(r.Context(), identity(r), mux.Vars(r)["id"], req.Response)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
