package treatment

import (
	"time"

	"github.com/nrc/nrc/internal/platform/record"
)

type Medicine struct {
	Medicine  string `json:"medicine"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

// Progress is one day's observation.
type Progress struct {
	Date     string   `json:"date"`
	Weight   *float64 `json:"weight,omitempty"`
	Appetite string   `json:"appetite,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

type LabReport struct {
	Date    string `json:"date"`
	Type    string `json:"type"`
	Results string `json:"results"`
}

// Tracker follows one patient's stay at a hospital.
type Tracker struct {
	ID               string      `db:"id" json:"id"`
	PatientID        string      `db:"patient_id" json:"patient_id"`
	HospitalID       string      `db:"hospital_id" json:"hospital_id"`
	AdmissionDate    time.Time   `db:"admission_date" json:"admission_date"`
	DischargeDate    *time.Time  `db:"discharge_date" json:"discharge_date"`
	TreatmentPlan    []string    `db:"treatment_plan" json:"treatment_plan"`
	MedicineSchedule []Medicine  `db:"medicine_schedule" json:"medicine_schedule"`
	DoctorRemarks    []string    `db:"doctor_remarks" json:"doctor_remarks"`
	DailyProgress    []Progress  `db:"daily_progress" json:"daily_progress"`
	LabReports       []LabReport `db:"lab_reports" json:"lab_reports"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

var Schema = record.SchemaFor[Tracker]("treatment_trackers", record.OrderBy("admission_date", false))
