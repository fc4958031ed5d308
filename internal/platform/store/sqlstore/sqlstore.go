// Package sqlstore is the relational store backend. Queries are built with
// goqu and executed through database/sql, so the same code serves PostgreSQL
// (pgx stdlib driver) and SQLite (modernc).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/store"
)

// Dialect names accepted by New.
const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

// Store runs the four store operations against one database. A Store built
// with a nil *sql.DB reports store.ErrUnavailable for every call, which is
// how an unconfigured relational backend looks to the fallback policy.
type Store struct {
	db       *goqu.Database
	textTime bool
}

// New wraps db using the goqu dialect (Postgres or SQLite).
func New(db *sql.DB, dialect string) *Store {
	if db == nil {
		return &Store{}
	}
	return &Store{
		db:       goqu.New(dialect, db),
		textTime: dialect == SQLite,
	}
}

func (s *Store) Name() string { return "sql" }

func (s *Store) List(ctx context.Context, schema *record.Schema, q store.Query) ([]record.Values, int, error) {
	if s.db == nil {
		return nil, 0, store.ErrUnavailable
	}

	ds := s.db.From(schema.Table).Prepared(true)
	if len(q.Filters) > 0 {
		ds = ds.Where(s.where(q.Filters))
	}
	total, err := ds.CountContext(ctx)
	if err != nil {
		return nil, 0, s.opErr("list", schema, err)
	}

	sel := ds.Select(columns(schema)...).Order(order(schema)...)
	if q.Limit > 0 {
		sel = sel.Limit(uint(q.Limit))
	}
	if q.Offset > 0 {
		sel = sel.Offset(uint(q.Offset))
	}
	rows, err := s.query(ctx, schema, sel)
	if err != nil {
		return nil, 0, s.opErr("list", schema, err)
	}
	return rows, int(total), nil
}

func (s *Store) Get(ctx context.Context, schema *record.Schema, id string) (record.Values, error) {
	if s.db == nil {
		return nil, store.ErrUnavailable
	}
	sel := s.db.From(schema.Table).Prepared(true).
		Select(columns(schema)...).
		Where(goqu.C("id").Eq(id)).
		Limit(1)
	rows, err := s.query(ctx, schema, sel)
	if err != nil {
		return nil, s.opErr("get", schema, err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) Insert(ctx context.Context, schema *record.Schema, row record.Values) (record.Values, error) {
	if s.db == nil {
		return nil, store.ErrUnavailable
	}
	stored := row.Only(schema)
	query, args, err := s.db.Insert(schema.Table).Prepared(true).Rows(s.bind(stored)).ToSQL()
	if err != nil {
		return nil, s.opErr("insert", schema, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, s.opErr("insert", schema, err)
	}
	return stored, nil
}

func (s *Store) Update(ctx context.Context, schema *record.Schema, id string, patch record.Values) (record.Values, error) {
	if s.db == nil {
		return nil, store.ErrUnavailable
	}
	set := patch.Only(schema)
	if len(set) == 0 {
		return s.Get(ctx, schema, id)
	}

	query, args, err := s.db.Update(schema.Table).Prepared(true).
		Set(s.bind(set)).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, s.opErr("update", schema, err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, s.opErr("update", schema, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, s.opErr("update", schema, err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return s.Get(ctx, schema, id)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return store.ErrUnavailable
	}
	_, err := s.db.ExecContext(ctx, "SELECT 1")
	return err
}

func (s *Store) query(ctx context.Context, schema *record.Schema, sel *goqu.SelectDataset) ([]record.Values, error) {
	query, args, err := sel.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []record.Values{}
	dest := make([]any, len(schema.Columns))
	ptrs := make([]any, len(schema.Columns))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		vals := make(record.Values, len(schema.Columns))
		for i, col := range schema.Columns {
			v, err := record.FromSQL(col.Kind, dest[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			vals[col.Name] = v
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

func (s *Store) bind(vals record.Values) goqu.Record {
	rec := make(goqu.Record, len(vals))
	for k, v := range vals {
		rec[k] = record.ToSQL(v, s.textTime)
	}
	return rec
}

func (s *Store) where(filters record.Values) goqu.Ex {
	ex := make(goqu.Ex, len(filters))
	for k, v := range filters {
		ex[k] = record.ToSQL(v, s.textTime)
	}
	return ex
}

func (s *Store) opErr(op string, schema *record.Schema, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &store.OpError{Backend: s.Name(), Op: op, Table: schema.Table, Err: err}
}

func columns(schema *record.Schema) []any {
	cols := make([]any, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = c.Name
	}
	return cols
}

func order(schema *record.Schema) []exp.OrderedExpression {
	var out []exp.OrderedExpression
	if schema.OrderBy != "" && schema.OrderBy != "id" {
		col := goqu.I(schema.OrderBy)
		if schema.Ascending {
			out = append(out, col.Asc().NullsFirst())
		} else {
			out = append(out, col.Desc().NullsLast())
		}
	}
	return append(out, goqu.I("id").Asc())
}
