package notification

import (
	"time"

	"github.com/nrc/nrc/internal/platform/record"
)

// Notification types raised by the workflows.
const (
	TypeBedRequest       = "bed_request"
	TypeBedApproval      = "bed_approval"
	TypeDischargeRequest = "patient_discharge_request"
	TypeDischarged       = "patient_discharged"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Notification is an event record addressed to a role and optionally to one
// user. Only IsRead changes after creation.
type Notification struct {
	ID               string    `db:"id" json:"id"`
	UserID           *string   `db:"user_id" json:"user_id"`
	UserRole         string    `db:"user_role" json:"user_role"`
	NotificationType string    `db:"notification_type" json:"notification_type"`
	Title            string    `db:"title" json:"title"`
	Message          string    `db:"message" json:"message"`
	Priority         string    `db:"priority" json:"priority"`
	ActionRequired   bool      `db:"action_required" json:"action_required"`
	IsRead           bool      `db:"is_read" json:"is_read"`
	ActionURL        *string   `db:"action_url" json:"action_url"`
	PatientID        *string   `db:"patient_id" json:"patient_id"`
	NotificationDate time.Time `db:"notification_date" json:"notification_date"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Schema describes the notifications table. Older clients send "type" and
// "read_status".
var Schema = record.SchemaFor[Notification]("notifications",
	record.OrderBy("notification_date", false),
	record.Aliases("notification_type", "type"),
	record.Aliases("is_read", "read_status"),
)

func validPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
