package notification

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/resource"
)

// ListLimit caps every notification listing.
const ListLimit = 100

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create stores a new unread notification. Priority defaults to medium.
func (s *Service) Create(ctx context.Context, input record.Values) (*Notification, error) {
	input = input.Clone()
	delete(input, "id")

	n := &Notification{}
	if err := Schema.Decode(input, n); err != nil {
		return nil, resource.Invalid("%v", err)
	}
	if err := s.create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Notify raises a notification on behalf of a workflow.
func (s *Service) Notify(ctx context.Context, n *Notification) error {
	return s.create(ctx, n)
}

func (s *Service) create(ctx context.Context, n *Notification) error {
	if n.UserRole == "" && (n.UserID == nil || *n.UserID == "") {
		return resource.Invalid("user_role or user_id is required")
	}
	if strings.TrimSpace(n.Title) == "" {
		return resource.Invalid("title is required")
	}
	if strings.TrimSpace(n.Message) == "" {
		return resource.Invalid("message is required")
	}
	if n.NotificationType == "" {
		return resource.Invalid("type is required")
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if !validPriority(n.Priority) {
		return resource.Invalid("unknown priority %q", n.Priority)
	}
	n.IsRead = false
	if n.NotificationDate.IsZero() {
		n.NotificationDate = s.now().UTC()
	}
	return s.repo.Create(ctx, n)
}

func (s *Service) Get(ctx context.Context, id string) (*Notification, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForUser returns the newest notifications addressed to userID.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Notification, error) {
	if userID == "" {
		return nil, resource.Invalid("userId is required")
	}
	return s.repo.ListByUser(ctx, userID, ListLimit)
}

// ListForRole returns notifications addressed to role, merged with those
// addressed to userID when given, newest first.
func (s *Service) ListForRole(ctx context.Context, role, userID string) ([]*Notification, error) {
	if role == "" {
		return nil, resource.Invalid("role is required")
	}
	items, err := s.repo.ListByRole(ctx, role, ListLimit)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return items, nil
	}
	mine, err := s.repo.ListByUser(ctx, userID, ListLimit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(items))
	for _, n := range items {
		seen[n.ID] = true
	}
	for _, n := range mine {
		if !seen[n.ID] {
			items = append(items, n)
		}
	}
	slices.SortStableFunc(items, func(a, b *Notification) int {
		if c := b.NotificationDate.Compare(a.NotificationDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(items) > ListLimit {
		items = items[:ListLimit]
	}
	return items, nil
}

func (s *Service) MarkRead(ctx context.Context, id string) (*Notification, error) {
	return s.repo.Update(ctx, id, record.Values{"is_read": true})
}
