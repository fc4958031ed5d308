package notification

import (
	"context"

	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/store"
)

type storeRepo struct {
	table *store.Table[Notification]
}

func NewStoreRepo(backend store.Backend) Repository {
	return &storeRepo{table: store.NewTable[Notification](Schema, backend)}
}

func (r *storeRepo) Create(ctx context.Context, n *Notification) error {
	return r.table.Create(ctx, n)
}

func (r *storeRepo) GetByID(ctx context.Context, id string) (*Notification, error) {
	return r.table.Get(ctx, id)
}

func (r *storeRepo) Update(ctx context.Context, id string, patch record.Values) (*Notification, error) {
	return r.table.Update(ctx, id, patch)
}

func (r *storeRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	items, _, err := r.table.List(ctx, store.Query{Filters: record.Values{"user_id": userID}, Limit: limit})
	return items, err
}

func (r *storeRepo) ListByRole(ctx context.Context, role string, limit int) ([]*Notification, error) {
	items, _, err := r.table.List(ctx, store.Query{Filters: record.Values{"user_role": role}, Limit: limit})
	return items, err
}
