package patient

import (
	"fmt"
	"time"

	"github.com/nrc/nrc/internal/platform/record"
)

// Categories of beneficiary.
const (
	TypeChild           = "child"
	TypePregnantWoman   = "pregnant_woman"
	TypeLactatingMother = "lactating_mother"
)

// Patient is a registered beneficiary. Discharge is a soft delete: the
// record stays with IsActive false.
type Patient struct {
	ID                    string     `db:"id" json:"id"`
	RegistrationNumber    string     `db:"registration_number" json:"registration_number"`
	AadhaarNumber         *string    `db:"aadhaar_number" json:"aadhaar_number"`
	Name                  string     `db:"name" json:"name"`
	Age                   int        `db:"age" json:"age"`
	Type                  string     `db:"type" json:"type"`
	PregnancyWeek         *int       `db:"pregnancy_week" json:"pregnancy_week"`
	ContactNumber         string     `db:"contact_number" json:"contact_number"`
	EmergencyContact      *string    `db:"emergency_contact" json:"emergency_contact"`
	Address               string     `db:"address" json:"address"`
	Weight                *float64   `db:"weight" json:"weight"`
	Height                *float64   `db:"height" json:"height"`
	BloodPressure         *string    `db:"blood_pressure" json:"blood_pressure"`
	Temperature           *float64   `db:"temperature" json:"temperature"`
	Hemoglobin            *float64   `db:"hemoglobin" json:"hemoglobin"`
	NutritionStatus       string     `db:"nutrition_status" json:"nutrition_status"`
	MedicalHistory        []string   `db:"medical_history" json:"medical_history"`
	Symptoms              []string   `db:"symptoms" json:"symptoms"`
	Remarks               *string    `db:"remarks" json:"remarks"`
	RiskScore             *float64   `db:"risk_score" json:"risk_score"`
	NutritionalDeficiency []string   `db:"nutritional_deficiency" json:"nutritional_deficiency"`
	Documents             []string   `db:"documents" json:"documents"`
	Photos                []string   `db:"photos" json:"photos"`
	BedID                 *string    `db:"bed_id" json:"bed_id"`
	LastVisitDate         *time.Time `db:"last_visit_date" json:"last_visit_date"`
	NextVisitDate         *time.Time `db:"next_visit_date" json:"next_visit_date"`
	RegisteredBy          string     `db:"registered_by" json:"registered_by"`
	RegistrationDate      time.Time  `db:"registration_date" json:"registration_date"`
	AdmissionDate         *time.Time `db:"admission_date" json:"admission_date"`
	IsActive              bool       `db:"is_active" json:"is_active"`
	DischargeDate         *time.Time `db:"discharge_date" json:"discharge_date"`
	DischargeReason       *string    `db:"discharge_reason" json:"discharge_reason"`
	LastBedID             *string    `db:"last_bed_id" json:"last_bed_id"`
	LastAdmissionDate     *time.Time `db:"last_admission_date" json:"last_admission_date"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// Schema describes the patients table. Newest registrations list first.
var Schema = record.SchemaFor[Patient]("patients", record.OrderBy("registration_date", false))

// HasBed reports whether the patient currently points at a bed.
func (p *Patient) HasBed() bool {
	return p.BedID != nil && *p.BedID != ""
}

// ValidType reports whether t is a known category.
func ValidType(t string) bool {
	switch t {
	case TypeChild, TypePregnantWoman, TypeLactatingMother:
		return true
	}
	return false
}

// Label is the short description used in notifications.
func (p *Patient) Label() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.RegistrationNumber)
}
