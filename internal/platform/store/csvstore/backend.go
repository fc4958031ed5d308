package csvstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/store"
)

// Backend adapts a Store to the store.Backend contract, converting rows with
// the schema's cell codec.
type Backend struct {
	files *Store
}

// NewBackend wraps files.
func NewBackend(files *Store) *Backend {
	return &Backend{files: files}
}

func (b *Backend) Name() string { return "csv" }

func (b *Backend) List(ctx context.Context, s *record.Schema, q store.Query) ([]record.Values, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	rows, err := b.files.ReadAll(s.Table)
	if err != nil {
		return nil, 0, b.opErr("list", s, err)
	}

	matched := make([]record.Values, 0, len(rows))
	for _, r := range rows {
		vals, err := decodeRow(s, r)
		if err != nil {
			continue
		}
		if matches(vals, q.Filters) {
			matched = append(matched, vals)
		}
	}
	sortRows(s, matched)

	total := len(matched)
	page := matched
	if q.Offset > 0 {
		if q.Offset >= len(page) {
			page = page[:0]
		} else {
			page = page[q.Offset:]
		}
	}
	if q.Limit > 0 && q.Limit < len(page) {
		page = page[:q.Limit]
	}
	return page, total, nil
}

func (b *Backend) Get(ctx context.Context, s *record.Schema, id string) (record.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := b.files.FindOne(s.Table, func(r Row) bool { return r["id"] == id })
	if err != nil {
		return nil, b.opErr("get", s, err)
	}
	if r == nil {
		return nil, store.ErrNotFound
	}
	vals, err := decodeRow(s, r)
	if err != nil {
		return nil, b.opErr("get", s, err)
	}
	return vals, nil
}

func (b *Backend) Insert(ctx context.Context, s *record.Schema, row record.Values) (record.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.files.EnsureTable(s.Table, s.Names()); err != nil {
		return nil, b.opErr("insert", s, err)
	}
	stored, err := b.files.Append(s.Table, encodeRow(row))
	if err != nil {
		return nil, b.opErr("insert", s, err)
	}
	vals, err := decodeRow(s, stored)
	if err != nil {
		return nil, b.opErr("insert", s, err)
	}
	return vals, nil
}

func (b *Backend) Update(ctx context.Context, s *record.Schema, id string, patch record.Values) (record.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	merged, err := b.files.update(s.Table, id, encodeRow(patch))
	if err != nil {
		return nil, b.opErr("update", s, err)
	}
	if merged == nil {
		return nil, store.ErrNotFound
	}
	vals, err := decodeRow(s, merged)
	if err != nil {
		return nil, b.opErr("update", s, err)
	}
	return vals, nil
}

func (b *Backend) opErr(op string, s *record.Schema, err error) error {
	return &store.OpError{Backend: b.Name(), Op: op, Table: s.Table, Err: err}
}

func encodeRow(vals record.Values) Row {
	r := make(Row, len(vals))
	for k, v := range vals {
		r[k] = record.EncodeCell(v)
	}
	return r
}

// decodeRow converts the schema's columns present in r. Header columns the
// schema does not know are ignored.
func decodeRow(s *record.Schema, r Row) (record.Values, error) {
	vals := make(record.Values, len(s.Columns))
	for _, col := range s.Columns {
		cell, ok := r[col.Name]
		if !ok {
			continue
		}
		v, err := record.DecodeCell(col.Kind, cell)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		vals[col.Name] = v
	}
	return vals, nil
}

func matches(vals, filters record.Values) bool {
	for k, want := range filters {
		if record.Compare(vals[k], want) != 0 {
			return false
		}
	}
	return true
}

func sortRows(s *record.Schema, rows []record.Values) {
	if s.OrderBy == "" {
		return
	}
	slices.SortStableFunc(rows, func(a, b record.Values) int {
		c := record.Compare(a[s.OrderBy], b[s.OrderBy])
		if !s.Ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return record.Compare(a["id"], b["id"])
	})
}
