package bedrequest

import (
	"context"

	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/store"
)

type storeRepo struct {
	table *store.Table[BedRequest]
}

func NewStoreRepo(backend store.Backend) Repository {
	return &storeRepo{table: store.NewTable[BedRequest](Schema, backend)}
}

func (r *storeRepo) Create(ctx context.Context, br *BedRequest) error {
	return r.table.Create(ctx, br)
}

func (r *storeRepo) GetByID(ctx context.Context, id string) (*BedRequest, error) {
	return r.table.Get(ctx, id)
}

func (r *storeRepo) Update(ctx context.Context, id string, patch record.Values) (*BedRequest, error) {
	return r.table.Update(ctx, id, patch)
}

func (r *storeRepo) List(ctx context.Context, f Filter) ([]*BedRequest, int, error) {
	filters := record.Values{}
	if f.PatientID != "" {
		filters["patient_id"] = f.PatientID
	}
	if f.Status != "" {
		filters["status"] = f.Status
	}
	if f.UrgencyLevel != "" {
		filters["urgency_level"] = f.UrgencyLevel
	}
	return r.table.List(ctx, store.Query{Filters: filters, Limit: f.Limit, Offset: f.Offset})
}
