package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nrc/nrc/internal/platform/record"
)

// Table is the typed façade for one entity type T over any Backend.
type Table[T any] struct {
	schema  *record.Schema
	backend Backend
	now     func() time.Time
}

// NewTable binds schema (built with record.SchemaFor[T]) to backend.
func NewTable[T any](schema *record.Schema, backend Backend) *Table[T] {
	return &Table[T]{schema: schema, backend: backend, now: time.Now}
}

// Schema returns the table schema.
func (t *Table[T]) Schema() *record.Schema { return t.schema }

// List returns the page of entities matching q and the total match count.
// No match yields an empty, non-nil slice.
func (t *Table[T]) List(ctx context.Context, q Query) ([]*T, int, error) {
	filters, err := t.filters(q.Filters)
	if err != nil {
		return nil, 0, err
	}
	rows, total, err := t.backend.List(ctx, t.schema, Query{Filters: filters, Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		return nil, 0, err
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		v, err := t.decode(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, nil
}

// Get fetches one entity by id.
func (t *Table[T]) Get(ctx context.Context, id string) (*T, error) {
	row, err := t.backend.Get(ctx, t.schema, id)
	if err != nil {
		return nil, err
	}
	return t.decode(row)
}

// Create assigns an id when v has none, stamps created_at and updated_at,
// persists v and overwrites it with the stored record.
func (t *Table[T]) Create(ctx context.Context, v *T) error {
	vals, err := t.schema.Encode(v)
	if err != nil {
		return err
	}
	if id, _ := vals["id"].(string); id == "" {
		vals["id"] = t.schema.NewID()
	}
	now := t.now().UTC()
	if t.schema.Has("created_at") {
		vals["created_at"] = now
	}
	if t.schema.Has("updated_at") {
		vals["updated_at"] = now
	}

	stored, err := t.backend.Insert(ctx, t.schema, vals)
	if err != nil {
		return err
	}
	fresh, err := t.decode(stored)
	if err != nil {
		return err
	}
	*v = *fresh
	return nil
}

// Update applies patch to the entity with the id. Only columns present in
// patch change; id and created_at are immutable and updated_at is stamped.
func (t *Table[T]) Update(ctx context.Context, id string, patch record.Values) (*T, error) {
	p := patch.Only(t.schema)
	delete(p, "id")
	delete(p, "created_at")
	if t.schema.Has("updated_at") {
		p["updated_at"] = t.now().UTC()
	}
	row, err := t.backend.Update(ctx, t.schema, id, p)
	if err != nil {
		return nil, err
	}
	return t.decode(row)
}

func (t *Table[T]) decode(row record.Values) (*T, error) {
	v := new(T)
	if err := t.schema.Decode(row, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (t *Table[T]) filters(in record.Values) (record.Values, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(record.Values, len(in))
	for k, v := range in {
		col, ok := t.schema.Column(k)
		if !ok {
			return nil, fmt.Errorf("%s has no column %q", t.schema.Table, k)
		}
		cv, err := record.Coerce(col.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", k, err)
		}
		out[k] = cv
	}
	return out, nil
}
