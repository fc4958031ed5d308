// Package store defines the persistence contract shared by the relational and
// CSV backends, the per-call fallback policy between them and the typed
// table façade used by the domain repositories.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nrc/nrc/internal/platform/record"
)

var (
	// ErrNotFound means the requested id does not exist in the backend that
	// answered the call.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable means the backend is not configured or cannot be reached.
	ErrUnavailable = errors.New("store backend unavailable")

	// ErrStoreFailure is returned when no backend could complete the call.
	// It carries no backend detail; the cause is logged where it happens.
	ErrStoreFailure = errors.New("store operation failed")
)

// OpError annotates a backend error with where it happened.
type OpError struct {
	Backend string
	Op      string
	Table   string
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Backend, e.Op, e.Table, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Query selects rows by column equality. A nil filter value matches null.
// Limit <= 0 means no limit.
type Query struct {
	Filters record.Values
	Limit   int
	Offset  int
}

// Backend is one physical store. Rows cross this boundary as record.Values
// keyed by snake_case column name.
type Backend interface {
	Name() string
	// List returns the page selected by q in the schema's natural order, and
	// the number of rows matching q's filters.
	List(ctx context.Context, s *record.Schema, q Query) ([]record.Values, int, error)
	// Get returns ErrNotFound when no row has the id.
	Get(ctx context.Context, s *record.Schema, id string) (record.Values, error)
	// Insert persists row and returns the values actually stored.
	Insert(ctx context.Context, s *record.Schema, row record.Values) (record.Values, error)
	// Update merges patch into the row with the id and returns the merged
	// row, or ErrNotFound without modifying anything.
	Update(ctx context.Context, s *record.Schema, id string, patch record.Values) (record.Values, error)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
