package bedrequest

import (
	"encoding/json"
	"time"

	"github.com/nrc/nrc/internal/platform/record"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusDeclined = "declined"
)

var urgencyLevels = []string{"low", "medium", "high", "critical"}

// BedRequest asks a hospital for a bed for a patient. HospitalReferral is
// the free-form referral document attached by the requester or reviewer.
type BedRequest struct {
	ID                    string          `db:"id" json:"id"`
	PatientID             string          `db:"patient_id" json:"patient_id"`
	UrgencyLevel          string          `db:"urgency_level" json:"urgency_level"`
	MedicalJustification  string          `db:"medical_justification" json:"medical_justification"`
	CurrentCondition      *string         `db:"current_condition" json:"current_condition"`
	EstimatedStayDuration *int            `db:"estimated_stay_duration" json:"estimated_stay_duration"`
	SpecialRequirements   *string         `db:"special_requirements" json:"special_requirements"`
	RequestedBy           string          `db:"requested_by" json:"requested_by"`
	RequestDate           time.Time       `db:"request_date" json:"request_date"`
	Status                string          `db:"status" json:"status"`
	HospitalReferral      json.RawMessage `db:"hospital_referral" json:"hospital_referral"`
	ReviewedBy            *string         `db:"reviewed_by" json:"reviewed_by"`
	ReviewDate            *time.Time      `db:"review_date" json:"review_date"`
	ReviewComments        *string         `db:"review_comments" json:"review_comments"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
}

var Schema = record.SchemaFor[BedRequest]("bed_requests")

func validStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusDeclined:
		return true
	}
	return false
}

func validUrgency(u string) bool {
	for _, l := range urgencyLevels {
		if u == l {
			return true
		}
	}
	return false
}
