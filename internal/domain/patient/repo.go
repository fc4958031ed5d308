package patient

import (
	"context"

	"github.com/nrc/nrc/internal/platform/record"
)

// Filter selects patients. A nil Active lists active patients only.
type Filter struct {
	RegisteredBy string
	Active       *bool
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	Update(ctx context.Context, id string, patch record.Values) (*Patient, error)
	List(ctx context.Context, f Filter) ([]*Patient, error)
}
