// Package resource serves the plain create/read/update entities that need no
// cross-entity rules: a typed service over store.Table plus its echo handler.
package resource

import (
	"context"

	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/store"
)

type Service[T any] struct {
	table   *store.Table[T]
	prepare func(ctx context.Context, v *T) error
	check   func(patch record.Values) error
}

type Option[T any] func(*Service[T])

// WithPrepare sets defaults and validates a new entity before it is stored.
func WithPrepare[T any](fn func(ctx context.Context, v *T) error) Option[T] {
	return func(s *Service[T]) { s.prepare = fn }
}

// WithPatchCheck validates an update patch before it is applied.
func WithPatchCheck[T any](fn func(patch record.Values) error) Option[T] {
	return func(s *Service[T]) { s.check = fn }
}

func NewService[T any](table *store.Table[T], opts ...Option[T]) *Service[T] {
	s := &Service[T]{table: table}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service[T]) Schema() *record.Schema { return s.table.Schema() }

func (s *Service[T]) List(ctx context.Context, q store.Query) ([]*T, int, error) {
	return s.table.List(ctx, q)
}

func (s *Service[T]) Get(ctx context.Context, id string) (*T, error) {
	return s.table.Get(ctx, id)
}

// Create builds an entity from normalized input. Ids and timestamps are
// always assigned by the store.
func (s *Service[T]) Create(ctx context.Context, input record.Values) (*T, error) {
	input = input.Clone()
	delete(input, "id")

	v := new(T)
	if err := s.table.Schema().Decode(input, v); err != nil {
		return nil, Invalid("%v", err)
	}
	if s.prepare != nil {
		if err := s.prepare(ctx, v); err != nil {
			return nil, err
		}
	}
	if err := s.table.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service[T]) Update(ctx context.Context, id string, patch record.Values) (*T, error) {
	if s.check != nil {
		if err := s.check(patch); err != nil {
			return nil, err
		}
	}
	return s.table.Update(ctx, id, patch)
}
