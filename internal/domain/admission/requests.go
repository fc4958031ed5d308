package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nrc/nrc/internal/domain/bed"
	"github.com/nrc/nrc/internal/domain/notification"
	"github.com/nrc/nrc/internal/platform/auth"
	"github.com/nrc/nrc/internal/platform/resource"
	"github.com/nrc/nrc/internal/platform/store"
)

const defaultReleaseReason = "Discharged on request"

// RequestDischarge asks the hospital role to discharge an active patient.
// Nothing is written to the patient or the bed.
func (s *Service) RequestDischarge(ctx context.Context, patientID, reason, requestedBy string) (*notification.Notification, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, resource.Invalid("reason is required")
	}
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, lookupErr("patient", patientID, err)
	}
	if !p.IsActive {
		return nil, ErrPatientInactive
	}

	url := "/patients/" + p.ID
	n := &notification.Notification{
		UserRole:         auth.RoleHospital,
		NotificationType: notification.TypeDischargeRequest,
		Title:            "Discharge requested",
		Message:          fmt.Sprintf("Discharge requested for %s: %s", p.Label(), reason),
		Priority:         notification.PriorityHigh,
		ActionRequired:   true,
		ActionURL:        &url,
		PatientID:        &p.ID,
	}
	if err := s.notes.Notify(ctx, n); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("patient_id", p.ID).
		Str("requested_by", requestedBy).
		Str("notification_id", n.ID).
		Msg("discharge requested")
	return n, nil
}

// ReleaseFromNotification acts on a discharge request: it discharges the
// patient named in the notification, releasing whichever bed holds them,
// and marks the notification read.
func (s *Service) ReleaseFromNotification(ctx context.Context, notificationID, reason string) (*Outcome, error) {
	n, err := s.notes.Get(ctx, notificationID)
	if err != nil {
		return nil, lookupErr("notification", notificationID, err)
	}
	if n.NotificationType != notification.TypeDischargeRequest || n.PatientID == nil || *n.PatientID == "" {
		return nil, resource.Invalid("notification %s is not a discharge request", notificationID)
	}
	if n.IsRead {
		return nil, ErrRequestHandled
	}
	patientID := *n.PatientID

	bedID, err := s.bedOf(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = defaultReleaseReason
	}
	out, err := s.Discharge(ctx, patientID, bedID, reason)
	if err != nil {
		return out, err
	}

	if _, err := s.notes.MarkRead(ctx, notificationID); err != nil {
		out.fail(stepNotification, err)
		s.logger.Warn().Err(err).Str("notification_id", notificationID).Msg("discharge request not marked read")
		return out, nil
	}
	out.ok(stepNotification)
	return out, nil
}

// bedOf finds the bed holding the patient. The bed's own reference wins
// over the patient's bed_id; a bed_id naming a bed now held by someone else
// yields no bed.
func (s *Service) bedOf(ctx context.Context, patientID string) (string, error) {
	beds, err := s.beds.List(ctx, bed.Filter{PatientID: patientID})
	if err != nil {
		return "", err
	}
	if len(beds) > 0 {
		return beds[0].ID, nil
	}
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return "", lookupErr("patient", patientID, err)
	}
	if !p.HasBed() {
		return "", nil
	}
	b, err := s.beds.GetByID(ctx, *p.BedID)
	if errors.Is(err, store.ErrNotFound) {
		return *p.BedID, nil
	}
	if err != nil {
		return "", err
	}
	// A bed that has moved on to another patient is left alone.
	if occ := b.Occupant(); occ != "" && occ != patientID {
		return "", nil
	}
	return b.ID, nil
}
