// Package treatment records the treatment given during a hospital stay.
package treatment

import (
	"context"
	"errors"
	"time"

	"github.com/nrc/nrc/internal/domain/patient"
	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/resource"
	"github.com/nrc/nrc/internal/platform/store"
)

// Patients looks up the tracked patient.
type Patients interface {
	GetByID(ctx context.Context, id string) (*patient.Patient, error)
}

// NewService returns the tracker service. New trackers must name an
// existing patient and a hospital; admission_date defaults to today.
func NewService(backend store.Backend, patients Patients) *resource.Service[Tracker] {
	prepare := func(ctx context.Context, t *Tracker) error {
		if t.PatientID == "" {
			return resource.Invalid("patient_id is required")
		}
		if t.HospitalID == "" {
			return resource.Invalid("hospital_id is required")
		}
		if _, err := patients.GetByID(ctx, t.PatientID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return resource.Invalid("unknown patient %q", t.PatientID)
			}
			return err
		}
		if t.AdmissionDate.IsZero() {
			t.AdmissionDate = time.Now().UTC().Truncate(24 * time.Hour)
		}
		defaultEmpty(t)
		return nil
	}
	return resource.NewService(store.NewTable[Tracker](Schema, backend),
		resource.WithPrepare(prepare),
		resource.WithPatchCheck[Tracker](checkPatch),
	)
}

func defaultEmpty(t *Tracker) {
	if t.TreatmentPlan == nil {
		t.TreatmentPlan = []string{}
	}
	if t.MedicineSchedule == nil {
		t.MedicineSchedule = []Medicine{}
	}
	if t.DoctorRemarks == nil {
		t.DoctorRemarks = []string{}
	}
	if t.DailyProgress == nil {
		t.DailyProgress = []Progress{}
	}
	if t.LabReports == nil {
		t.LabReports = []LabReport{}
	}
}

// checkPatch keeps the tracker attached to its patient and hospital.
func checkPatch(patch record.Values) error {
	for _, col := range []string{"patient_id", "hospital_id", "admission_date"} {
		if v, ok := patch[col]; ok && v == nil {
			return resource.Invalid("%s must not be null", col)
		}
	}
	if _, ok := patch["patient_id"]; ok {
		return resource.Invalid("patient_id cannot be changed")
	}
	return nil
}
