package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/chatmessages"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/chatsessions"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/expenses"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/supportmessages"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code can
// run against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Expenses(db dbx.DBTX) expenses.Repository
	ChatSessions(db dbx.DBTX) chatsessions.Repository
	ChatMessages(db dbx.DBTX) chatmessages.Repository
	SupportMessages(db dbx.DBTX) supportmessages.Repository
}
