package bedrequest

import (
	"context"

	"github.com/nrc/nrc/internal/platform/record"
)

// Filter selects bed requests. Empty fields do not filter.
type Filter struct {
	PatientID    string
	Status       string
	UrgencyLevel string
	Limit        int
	Offset       int
}

type Repository interface {
	Create(ctx context.Context, r *BedRequest) error
	GetByID(ctx context.Context, id string) (*BedRequest, error)
	Update(ctx context.Context, id string, patch record.Values) (*BedRequest, error)
	List(ctx context.Context, f Filter) ([]*BedRequest, int, error)
}
