package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Up applies every pending migration for dialect. goose keeps global state, so it must not run concurrently.
func Up(ctx context.Context, db *sql.DB, dialect string, l *slog.Logger) error {
	var dir string
	switch dialect {
	case DialectPostgres:
		dir = "postgres"
	case DialectSQLite:
		dir = "sqlite"
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	goose.SetBaseFS(files)
	goose.SetLogger(&gooseLogger{l: l})

	err := goose.SetDialect(dialect)
	if err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}

	err = goose.UpContext(ctx, db, dir)
	if err != nil {
		return fmt.Errorf("applying %s migrations: %w", dir, err)
	}

	return nil
}

type gooseLogger struct {
	l *slog.Logger
}

func (g *gooseLogger) Fatalf(format string, v ...any) {
	g.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g *gooseLogger) Printf(format string, v ...any) {
	g.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
