package bed

import (
	"time"

	"github.com/nrc/nrc/internal/platform/record"
)

const (
	StatusAvailable   = "available"
	StatusOccupied    = "occupied"
	StatusMaintenance = "maintenance"
	StatusReserved    = "reserved"
)

// Bed is one bed of a hospital ward. PatientName, PatientType and
// NutritionStatus copy the occupant's details for listings.
type Bed struct {
	ID              string     `db:"id" json:"id"`
	HospitalID      string     `db:"hospital_id" json:"hospital_id"`
	HospitalName    *string    `db:"hospital_name" json:"hospital_name"`
	BedNumber       string     `db:"bed_number" json:"bed_number"`
	Ward            string     `db:"ward" json:"ward"`
	Status          string     `db:"status" json:"status"`
	PatientID       *string    `db:"patient_id" json:"patient_id"`
	AdmissionDate   *time.Time `db:"admission_date" json:"admission_date"`
	PatientName     *string    `db:"patient_name" json:"patient_name"`
	PatientType     *string    `db:"patient_type" json:"patient_type"`
	NutritionStatus *string    `db:"nutrition_status" json:"nutrition_status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Schema describes the beds table. Bed ids are bed-<unix millis>.
var Schema = record.SchemaFor[Bed]("beds",
	record.OrderBy("bed_number", true),
	record.IDFunc(record.TimestampID("bed")),
)

// ValidStatus reports whether s is a known bed status.
func ValidStatus(s string) bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusMaintenance, StatusReserved:
		return true
	}
	return false
}

// Occupant returns the referenced patient id, or "".
func (b *Bed) Occupant() string {
	if b.PatientID == nil {
		return ""
	}
	return *b.PatientID
}

// ReleasePatch unlinks the occupant and parks the bed in maintenance.
func ReleasePatch() record.Values {
	return record.Values{
		"status":           StatusMaintenance,
		"patient_id":       nil,
		"admission_date":   nil,
		"patient_name":     nil,
		"patient_type":     nil,
		"nutrition_status": nil,
	}
}

// RestorePatch returns the values that put b back the way it is now. It is
// used to compensate a bed write whose paired patient write failed.
func (b *Bed) RestorePatch() record.Values {
	vals, _ := Schema.Encode(b)
	patch := make(record.Values, 6)
	for _, k := range []string{"status", "patient_id", "admission_date", "patient_name", "patient_type", "nutrition_status"} {
		patch[k] = vals[k]
	}
	return patch
}
