package records

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "modernc.org/sqlite"

	"readinglog/internal/types"
)

// OpenSQLite opens (creating the directory if needed) a local database file.
// Pass ":memory:" for a throwaway database.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// an in-memory database lives as long as its single connection
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	return db, nil
}

func NewSQLiteRepository(db *sql.DB, l *slog.Logger) Repository {
	return &sqliteRepo{db: goqu.New("sqlite3", db), l: l}
}

type sqliteRepo struct {
	db *goqu.Database
	l  *slog.Logger
}

func (s *sqliteRepo) GetAll(ctx context.Context) ([]types.ReadingRecord, error) {
	var rows []sqlRecord

	err := s.db.From(tableName).
		Order(goqu.C("id").Asc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, err
	}

	return intoCommons(rows), nil
}

func (s *sqliteRepo) Create(ctx context.Context, rec *types.ReadingRecord) error {
	_, err := s.db.Insert(tableName).
		Rows(fromCommon(rec)).
		Executor().
		ExecContext(ctx)
	return err
}

func (s *sqliteRepo) Replace(ctx context.Context, isbn13 string, rec *types.ReadingRecord) error {
	row := fromCommon(rec)
	row.Isbn13 = isbn13

	res, err := s.db.Update(tableName).
		Set(row).
		Where(firstWithIsbn(s.db.From(tableName), isbn13)).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		s.l.DebugContext(ctx, "No row to replace for "+isbn13)
		return types.NotFound("no record with ISBN %s", isbn13)
	}

	return nil
}

func (s *sqliteRepo) Delete(ctx context.Context, isbn13 string) (bool, error) {
	res, err := s.db.Delete(tableName).
		Where(firstWithIsbn(s.db.From(tableName), isbn13)).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	s.l.DebugContext(ctx, fmt.Sprintf("Deleted %d rows for %s", n, isbn13))
	return n > 0, nil
}
