package patient

import (
	"context"

	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/store"
)

type storeRepo struct {
	table *store.Table[Patient]
}

// NewStoreRepo persists patients through backend, normally the fallback
// backend over the relational and CSV stores.
func NewStoreRepo(backend store.Backend) Repository {
	return &storeRepo{table: store.NewTable[Patient](Schema, backend)}
}

func (r *storeRepo) Create(ctx context.Context, p *Patient) error {
	return r.table.Create(ctx, p)
}

func (r *storeRepo) GetByID(ctx context.Context, id string) (*Patient, error) {
	return r.table.Get(ctx, id)
}

func (r *storeRepo) Update(ctx context.Context, id string, patch record.Values) (*Patient, error) {
	return r.table.Update(ctx, id, patch)
}

func (r *storeRepo) List(ctx context.Context, f Filter) ([]*Patient, error) {
	active := true
	if f.Active != nil {
		active = *f.Active
	}
	filters := record.Values{"is_active": active}
	if f.RegisteredBy != "" {
		filters["registered_by"] = f.RegisteredBy
	}
	items, _, err := r.table.List(ctx, store.Query{Filters: filters})
	return items, err
}
