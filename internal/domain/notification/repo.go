package notification

import (
	"context"

	"github.com/nrc/nrc/internal/platform/record"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	Update(ctx context.Context, id string, patch record.Values) (*Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error)
	ListByRole(ctx context.Context, role string, limit int) ([]*Notification, error)
}
