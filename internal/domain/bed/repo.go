package bed

import (
	"context"

	"github.com/nrc/nrc/internal/platform/record"
)

// Filter selects beds by equality. Empty fields do not filter.
type Filter struct {
	HospitalID string
	Status     string
	PatientID  string
	Ward       string
}

type Repository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id string) (*Bed, error)
	Update(ctx context.Context, id string, patch record.Values) (*Bed, error)
	List(ctx context.Context, f Filter) ([]*Bed, error)
}
