package bedrequest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrc/nrc/internal/domain/notification"
	"github.com/nrc/nrc/internal/platform/auth"
	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/resource"
)

// Notifier raises workflow notifications.
type Notifier interface {
	Notify(ctx context.Context, n *notification.Notification) error
}

type Service struct {
	repo     Repository
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger.With().Str("component", "bedrequest").Logger(),
		now:      time.Now,
	}
}

// Create files a pending request and tells the hospital role about it.
func (s *Service) Create(ctx context.Context, input record.Values, requestedBy string) (*BedRequest, error) {
	input = input.Clone()
	for _, f := range []string{"id", "status", "reviewed_by", "review_date", "review_comments"} {
		delete(input, f)
	}

	br := &BedRequest{}
	if err := Schema.Decode(input, br); err != nil {
		return nil, resource.Invalid("%v", err)
	}
	if br.PatientID == "" {
		return nil, resource.Invalid("patient_id is required")
	}
	if !validUrgency(br.UrgencyLevel) {
		return nil, resource.Invalid("urgency_level must be one of %s", strings.Join(urgencyLevels, ", "))
	}
	if strings.TrimSpace(br.MedicalJustification) == "" {
		return nil, resource.Invalid("medical_justification is required")
	}
	if br.EstimatedStayDuration != nil && *br.EstimatedStayDuration < 0 {
		return nil, resource.Invalid("estimated_stay_duration must not be negative")
	}

	br.Status = StatusPending
	if br.RequestedBy == "" {
		br.RequestedBy = requestedBy
	}
	if br.RequestDate.IsZero() {
		br.RequestDate = s.now().UTC()
	}
	if err := s.repo.Create(ctx, br); err != nil {
		return nil, err
	}

	s.notify(ctx, br, &notification.Notification{
		UserRole:         auth.RoleHospital,
		NotificationType: notification.TypeBedRequest,
		Title:            "New bed request",
		Message:          fmt.Sprintf("Bed requested for patient %s (urgency: %s)", br.PatientID, br.UrgencyLevel),
		Priority:         priorityFor(br.UrgencyLevel),
		ActionRequired:   true,
		PatientID:        &br.PatientID,
	})
	return br, nil
}

func priorityFor(urgency string) string {
	switch urgency {
	case "critical":
		return notification.PriorityCritical
	case "high":
		return notification.PriorityHigh
	default:
		return notification.PriorityMedium
	}
}

func (s *Service) Get(ctx context.Context, id string) (*BedRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*BedRequest, int, error) {
	if f.Status != "" && !validStatus(f.Status) {
		return nil, 0, resource.Invalid("unknown status %q", f.Status)
	}
	return s.repo.List(ctx, f)
}

// Review applies a reviewer's patch. Deciding a request stamps the reviewer
// and review date when the patch does not, and notifies the requester.
func (s *Service) Review(ctx context.Context, id string, patch record.Values, reviewerID string) (*BedRequest, error) {
	patch = patch.Clone()
	delete(patch, "patient_id")
	delete(patch, "requested_by")

	status, hasStatus := patch["status"].(string)
	if _, ok := patch["status"]; ok && !validStatus(status) {
		return nil, resource.Invalid("unknown status %q", patch["status"])
	}
	if v, ok := patch["urgency_level"]; ok {
		if u, _ := v.(string); !validUrgency(u) {
			return nil, resource.Invalid("unknown urgency_level %q", v)
		}
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	decided := hasStatus && status != StatusPending && status != current.Status
	if decided {
		if patch["reviewed_by"] == nil && reviewerID != "" {
			patch["reviewed_by"] = reviewerID
		}
		if patch["review_date"] == nil {
			patch["review_date"] = s.now().UTC().Truncate(24 * time.Hour)
		}
	}

	br, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if decided && br.RequestedBy != "" {
		title := "Bed request " + br.Status
		priority := notification.PriorityMedium
		if br.Status == StatusApproved {
			priority = notification.PriorityHigh
		}
		s.notify(ctx, br, &notification.Notification{
			UserID:           &br.RequestedBy,
			UserRole:         auth.RoleAnganwadiWorker,
			NotificationType: notification.TypeBedApproval,
			Title:            title,
			Message:          fmt.Sprintf("The bed request for patient %s was %s", br.PatientID, br.Status),
			Priority:         priority,
			PatientID:        &br.PatientID,
		})
	}
	return br, nil
}

// notify never fails the request it belongs to.
func (s *Service) notify(ctx context.Context, br *BedRequest, n *notification.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn().Err(err).
			Str("bed_request_id", br.ID).
			Str("type", n.NotificationType).
			Msg("bed request notification failed")
	}
}
