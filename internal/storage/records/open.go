package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"readinglog/internal/logger"
	"readinglog/internal/storage/migrations"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendSheets   = "sheets"
)

// Config selects and configures one storage backend.
type Config struct {
	Backend     string
	AutoMigrate bool

	DatabaseUrl string
	SQLitePath  string

	SpreadsheetId   string
	SheetName       string
	CredentialsJson string
	CredentialsFile string
}

// Open builds a Store for cfg.Backend. The returned close func releases the backend's connections.
func Open(ctx context.Context, cfg Config, l *slog.Logger) (*Store, func(), error) {
	switch cfg.Backend {
	case BackendPostgres:
		return openPostgres(ctx, cfg, l)
	case BackendSQLite:
		return openSQLite(ctx, cfg, l)
	case BackendSheets:
		return openSheets(ctx, cfg, l)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q, one of postgres, sqlite or sheets expected", cfg.Backend)
	}
}

func openPostgres(ctx context.Context, cfg Config, l *slog.Logger) (*Store, func(), error) {
	if cfg.DatabaseUrl == "" {
		return nil, nil, errors.New("DATABASE_URL is required for the postgres backend")
	}

	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseUrl)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	pgCfg.ConnConfig.Tracer = logger.NewPGXTracer()

	pg, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	if cfg.AutoMigrate {
		db := stdlib.OpenDBFromPool(pg)
		err = migrations.Up(ctx, db, migrations.DialectPostgres, l)
		_ = db.Close()
		if err != nil {
			pg.Close()
			return nil, nil, err
		}
	}

	return NewStore(NewPGXRepository(pg, l), BackendPostgres, l), pg.Close, nil
}

func openSQLite(ctx context.Context, cfg Config, l *slog.Logger) (*Store, func(), error) {
	path := cfg.SQLitePath
	if path == "" {
		path = "data/readinglog.db"
	}

	db, err := OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AutoMigrate {
		if err := migrations.Up(ctx, db, migrations.DialectSQLite, l); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	return NewStore(NewSQLiteRepository(db, l), BackendSQLite, l), func() { _ = db.Close() }, nil
}

func openSheets(ctx context.Context, cfg Config, l *slog.Logger) (*Store, func(), error) {
	if cfg.SpreadsheetId == "" {
		return nil, nil, errors.New("SPREADSHEET_ID is required for the sheets backend")
	}

	srv, err := NewSheetsService(ctx, cfg.CredentialsJson, cfg.CredentialsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("creating sheets client: %w", err)
	}

	sheet := cfg.SheetName
	if sheet == "" {
		sheet = "Sheet1"
	}

	return NewStore(NewSheetsRepository(srv, cfg.SpreadsheetId, sheet, l), BackendSheets, l), func() {}, nil
}
