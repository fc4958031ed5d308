package bed

import (
	"context"

	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/store"
)

type storeRepo struct {
	table *store.Table[Bed]
}

func NewStoreRepo(backend store.Backend) Repository {
	return &storeRepo{table: store.NewTable[Bed](Schema, backend)}
}

func (r *storeRepo) Create(ctx context.Context, b *Bed) error {
	return r.table.Create(ctx, b)
}

func (r *storeRepo) GetByID(ctx context.Context, id string) (*Bed, error) {
	return r.table.Get(ctx, id)
}

func (r *storeRepo) Update(ctx context.Context, id string, patch record.Values) (*Bed, error) {
	return r.table.Update(ctx, id, patch)
}

func (r *storeRepo) List(ctx context.Context, f Filter) ([]*Bed, error) {
	filters := record.Values{}
	for col, v := range map[string]string{
		"hospital_id": f.HospitalID,
		"status":      f.Status,
		"patient_id":  f.PatientID,
		"ward":        f.Ward,
	} {
		if v != "" {
			filters[col] = v
		}
	}
	items, _, err := r.table.List(ctx, store.Query{Filters: filters})
	return items, err
}
