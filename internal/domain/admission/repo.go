package admission

import (
	"context"

	"github.com/nrc/nrc/internal/domain/bed"
	"github.com/nrc/nrc/internal/domain/notification"
	"github.com/nrc/nrc/internal/domain/patient"
	"github.com/nrc/nrc/internal/platform/record"
)

// Patients is the patient storage the workflows need. patient.Repository
// satisfies it.
type Patients interface {
	GetByID(ctx context.Context, id string) (*patient.Patient, error)
	Update(ctx context.Context, id string, patch record.Values) (*patient.Patient, error)
	List(ctx context.Context, f patient.Filter) ([]*patient.Patient, error)
}

// Beds is satisfied by bed.Repository.
type Beds interface {
	GetByID(ctx context.Context, id string) (*bed.Bed, error)
	Update(ctx context.Context, id string, patch record.Values) (*bed.Bed, error)
	List(ctx context.Context, f bed.Filter) ([]*bed.Bed, error)
}

// Notifications is satisfied by notification.Service.
type Notifications interface {
	Get(ctx context.Context, id string) (*notification.Notification, error)
	Notify(ctx context.Context, n *notification.Notification) error
	MarkRead(ctx context.Context, id string) (*notification.Notification, error)
}
