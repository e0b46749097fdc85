package records

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"readinglog/internal/types"
)

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

func (p *pgxRepo) GetAll(ctx context.Context) ([]types.ReadingRecord, error) {
	sql, params, err := p.g.From(tableName).
		Select(&sqlRecord{}).
		Order(goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []sqlRecord

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	return intoCommons(rows), nil
}

func (p *pgxRepo) Create(ctx context.Context, rec *types.ReadingRecord) error {
	sql, params, err := p.g.Insert(tableName).
		Rows(fromCommon(rec)).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}

func (p *pgxRepo) Replace(ctx context.Context, isbn13 string, rec *types.ReadingRecord) error {
	row := fromCommon(rec)
	row.Isbn13 = isbn13

	sql, params, err := p.g.Update(tableName).
		Set(row).
		Where(firstWithIsbn(p.g.From(tableName), isbn13)).
		ToSQL()
	if err != nil {
		return err
	}

	tag, err := p.pg.Exec(ctx, sql, params...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		p.l.DebugContext(ctx, "No row to replace for "+isbn13)
		return types.NotFound("no record with ISBN %s", isbn13)
	}

	return nil
}

func (p *pgxRepo) Delete(ctx context.Context, isbn13 string) (bool, error) {
	sql, params, err := p.g.Delete(tableName).
		Where(firstWithIsbn(p.g.From(tableName), isbn13)).
		ToSQL()
	if err != nil {
		return false, err
	}

	tag, err := p.pg.Exec(ctx, sql, params...)
	if err != nil {
		return false, err
	}

	p.l.DebugContext(ctx, fmt.Sprintf("Deleted %d rows for %s", tag.RowsAffected(), isbn13))
	return tag.RowsAffected() > 0, nil
}
