// Package migrations holds the embedded schema of the client database.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var Migrations embed.FS

var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Up applies all pending migrations. Goose progress output goes to logger
// at debug level; a nil logger discards it.
func Up(ctx context.Context, db *sql.DB, logger logging.Logger) error {
	if logger == nil {
		logger = logging.Nop()
	}
	goose.SetBaseFS(Migrations)
	goose.SetLogger(gooseLogger{ctx: ctx, logger: logger.With("module", "migrations")})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// gooseLogger routes goose output into the structured logger instead of
// the process stdout, which the CLI uses for the REPL.
type gooseLogger struct {
	ctx    context.Context
	logger logging.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug(l.ctx, strings.TrimRight(fmt.Sprintf(format, v...), "\r\n"))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(l.ctx, strings.TrimRight(fmt.Sprintf(format, v...), "\r\n"))
}
