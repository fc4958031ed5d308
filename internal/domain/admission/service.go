// Package admission keeps a bed's patient_id and its patient's bed_id in
// step. Each workflow writes one entity, then the other, in a fixed order.
// No transaction spans the two writes: a failed second write is recorded in
// the Outcome, logged, counted and, where it can be repaired, queued for
// replay.
package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrc/nrc/internal/domain/bed"
	"github.com/nrc/nrc/internal/domain/patient"
	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/resource"
	"github.com/nrc/nrc/internal/platform/retryqueue"
	"github.com/nrc/nrc/internal/platform/store"
	"github.com/nrc/nrc/internal/platform/telemetry"
)

var (
	ErrBedUnavailable  = errors.New("bed is not available")
	ErrPatientInactive = errors.New("patient is discharged")
	ErrPatientActive   = errors.New("patient is already active")
	ErrPatientHasBed   = errors.New("patient already holds another bed")
	ErrRequestHandled  = errors.New("discharge request already handled")
	ErrNoRetryQueue    = errors.New("no retry queue configured")

	// ErrReactivationIncomplete means the patient was reactivated but the
	// bed could not be linked. The patient write is not undone.
	ErrReactivationIncomplete = errors.New("patient reactivated but bed update failed")
)

type Service struct {
	patients  Patients
	beds      Beds
	notes     Notifications
	queue     retryqueue.Queue
	logger    zerolog.Logger
	telemetry *telemetry.Provider
	now       func() time.Time
}

// NewService wires the workflows. queue may be nil, in which case failed
// writes are only logged.
func NewService(patients Patients, beds Beds, notes Notifications, queue retryqueue.Queue, logger zerolog.Logger, tp *telemetry.Provider) *Service {
	return &Service{
		patients:  patients,
		beds:      beds,
		notes:     notes,
		queue:     queue,
		logger:    logger.With().Str("component", "admission").Logger(),
		telemetry: tp,
		now:       time.Now,
	}
}

func (s *Service) today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

// defaultDischargeReason is recorded when the caller gives no reason.
const defaultDischargeReason = "Discharged"

// Discharge archives the patient and then releases the bed into
// maintenance. A bed held by another patient is refused before anything is
// written. A failed patient write aborts before the bed is touched. A failed
// bed write does not fail the discharge: it is reported as partial and
// queued for replay.
func (s *Service) Discharge(ctx context.Context, patientID, bedID, reason string) (*Outcome, error) {
	if patientID == "" {
		return nil, resource.Invalid("patient id is required")
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = defaultDischargeReason
	}
	if bedID != "" {
		b, err := s.beds.GetByID(ctx, bedID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if b != nil {
			if occ := b.Occupant(); occ != "" && occ != patientID {
				return nil, fmt.Errorf("%w: bed %s holds patient %s", ErrBedUnavailable, bedID, occ)
			}
		}
	}
	out := newOutcome("discharge", patientID, bedID)

	patch := record.Values{
		"is_active":        false,
		"bed_id":           nil,
		"last_bed_id":      nil,
		"discharge_date":   s.now().UTC(),
		"discharge_reason": reason,
	}
	if bedID != "" {
		patch["last_bed_id"] = bedID
	}
	if _, err := s.patients.Update(ctx, patientID, patch); err != nil {
		out.fail(stepPatient, err)
		return out, lookupErr("patient", patientID, err)
	}
	out.ok(stepPatient)

	if bedID == "" {
		return out, nil
	}
	release := bed.ReleasePatch()
	if _, err := s.beds.Update(ctx, bedID, release); err != nil {
		s.partial(ctx, out, stepBed, bedID, release, err)
		return out, nil
	}
	out.ok(stepBed)
	return out, nil
}

// Reactivate brings an archived patient back. With a bed id the patient is
// linked first and the bed second; a failed bed write is returned as
// ErrReactivationIncomplete and queued, and the patient stays reactivated.
// A bed held by another patient is refused before anything is written.
func (s *Service) Reactivate(ctx context.Context, patientID, bedID string) (*Outcome, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, lookupErr("patient", patientID, err)
	}
	if p.IsActive {
		return nil, ErrPatientActive
	}
	if bedID != "" {
		b, err := s.beds.GetByID(ctx, bedID)
		if err != nil {
			return nil, lookupErr("bed", bedID, err)
		}
		if occ := b.Occupant(); occ != "" && occ != patientID {
			return nil, fmt.Errorf("%w: bed %s holds patient %s", ErrBedUnavailable, bedID, occ)
		}
	}

	out := newOutcome("reactivate", patientID, bedID)
	today := s.today()
	patch := record.Values{
		"is_active":        true,
		"discharge_date":   nil,
		"discharge_reason": nil,
	}
	if bedID != "" {
		patch["bed_id"] = bedID
		patch["last_admission_date"] = today
	}
	updated, err := s.patients.Update(ctx, patientID, patch)
	if err != nil {
		out.fail(stepPatient, err)
		return out, lookupErr("patient", patientID, err)
	}
	out.ok(stepPatient)

	if bedID == "" {
		return out, nil
	}
	occupy := occupyPatch(updated, today)
	if _, err := s.beds.Update(ctx, bedID, occupy); err != nil {
		s.partial(ctx, out, stepBed, bedID, occupy, err)
		return out, fmt.Errorf("%w: %w", ErrReactivationIncomplete, err)
	}
	out.ok(stepBed)
	return out, nil
}

// AssignBed admits an active patient to an available or reserved bed. The
// bed is written first; if the patient write then fails the bed is put back
// the way it was, and a failed restore is queued.
func (s *Service) AssignBed(ctx context.Context, patientID, bedID string) (*Outcome, error) {
	if bedID == "" {
		return nil, resource.Invalid("bed id is required")
	}
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, lookupErr("patient", patientID, err)
	}
	if !p.IsActive {
		return nil, ErrPatientInactive
	}
	if p.HasBed() && *p.BedID != bedID {
		return nil, fmt.Errorf("%w: %s", ErrPatientHasBed, *p.BedID)
	}
	b, err := s.beds.GetByID(ctx, bedID)
	if err != nil {
		return nil, lookupErr("bed", bedID, err)
	}

	out := newOutcome("assign_bed", patientID, bedID)
	if b.Status == bed.StatusOccupied && b.Occupant() == patientID && p.HasBed() {
		return out, nil
	}
	if b.Status != bed.StatusAvailable && b.Status != bed.StatusReserved {
		return nil, fmt.Errorf("%w: bed %s is %s", ErrBedUnavailable, bedID, b.Status)
	}
	if occ := b.Occupant(); occ != "" && occ != patientID {
		return nil, fmt.Errorf("%w: bed %s is held for patient %s", ErrBedUnavailable, bedID, occ)
	}

	today := s.today()
	prior := b.RestorePatch()
	if _, err := s.beds.Update(ctx, bedID, occupyPatch(p, today)); err != nil {
		out.fail(stepBed, err)
		return out, lookupErr("bed", bedID, err)
	}
	out.ok(stepBed)

	_, err = s.patients.Update(ctx, patientID, record.Values{"bed_id": bedID, "last_admission_date": today})
	if err == nil {
		out.ok(stepPatient)
		return out, nil
	}
	out.fail(stepPatient, err)
	if _, cerr := s.beds.Update(ctx, bedID, prior); cerr != nil {
		s.partial(ctx, out, stepCompensate, bedID, prior, cerr)
	} else {
		out.ok(stepCompensate)
	}
	return out, lookupErr("patient", patientID, err)
}

func occupyPatch(p *patient.Patient, day time.Time) record.Values {
	patch := record.Values{
		"status":           bed.StatusOccupied,
		"patient_id":       p.ID,
		"admission_date":   day,
		"patient_name":     p.Name,
		"patient_type":     p.Type,
		"nutrition_status": nil,
	}
	if p.NutritionStatus != "" {
		patch["nutrition_status"] = p.NutritionStatus
	}
	return patch
}

// partial records a failed bed write that followed a committed write.
func (s *Service) partial(ctx context.Context, out *Outcome, step, bedID string, patch record.Values, err error) {
	out.Partial = true
	s.telemetry.PartialFailure(out.Operation)

	st := Step{Name: step, Error: describe(err)}
	evt := s.logger.Error().Err(err).
		Str("operation", out.Operation).
		Str("patient_id", out.PatientID).
		Str("bed_id", bedID).
		Str("step", step)

	if !errors.Is(err, store.ErrNotFound) {
		if qerr := s.enqueue(ctx, out, bedID, patch); qerr != nil {
			evt = evt.AnErr("queue_error", qerr)
		} else {
			st.Queued = true
		}
	}
	out.Steps = append(out.Steps, st)
	evt.Bool("queued", st.Queued).Msg("partial consistency failure")

	if st.Queued {
		out.Warning = fmt.Sprintf("bed %s was not updated; the change is queued for retry", bedID)
	} else {
		out.Warning = fmt.Sprintf("bed %s was not updated and needs manual repair", bedID)
	}
}

func (s *Service) enqueue(ctx context.Context, out *Outcome, bedID string, patch record.Values) error {
	if s.queue == nil {
		return ErrNoRetryQueue
	}
	err := s.queue.Push(ctx, retryqueue.Task{
		ID:         uuid.NewString(),
		Kind:       retryqueue.KindBedUpdate,
		EntityID:   bedID,
		Patch:      map[string]any(patch.Clone()),
		Operation:  out.Operation,
		PatientID:  out.PatientID,
		EnqueuedAt: s.now().UTC(),
	})
	if err == nil {
		s.telemetry.Compensation("queued")
	}
	return err
}

// lookupErr names the missing entity on NotFound and passes other errors
// through unchanged.
func lookupErr(entity, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}
	return err
}
