package anganwadi

import (
	"time"

	"github.com/nrc/nrc/internal/platform/record"
)

// Visit ticket statuses.
const (
	VisitScheduled  = "scheduled"
	VisitInProgress = "in_progress"
	VisitCompleted  = "completed"
	VisitMissed     = "missed"
	VisitCancelled  = "cancelled"
)

type Location struct {
	Area     string `json:"area"`
	District string `json:"district"`
	State    string `json:"state,omitempty"`
	Pincode  string `json:"pincode,omitempty"`
}

// Beneficiaries counts the people a center serves or a visit targets.
type Beneficiaries struct {
	PregnantWomen int `json:"pregnantWomen"`
	Children      int `json:"children"`
}

// Anganwadi is a community nutrition center.
type Anganwadi struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Code            *string        `db:"code" json:"code"`
	Location        Location       `db:"location" json:"location"`
	ContactNumber   *string        `db:"contact_number" json:"contact_number"`
	SupervisorID    *string        `db:"supervisor_id" json:"supervisor_id"`
	IsActive        bool           `db:"is_active" json:"is_active"`
	Capacity        *Beneficiaries `db:"capacity" json:"capacity"`
	Facilities      []string       `db:"facilities" json:"facilities"`
	CoverageAreas   []string       `db:"coverage_areas" json:"coverage_areas"`
	EstablishedDate *time.Time     `db:"established_date" json:"established_date"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Worker is a field worker attached to a center.
type Worker struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	EmployeeID    string    `db:"employee_id" json:"employee_id"`
	AnganwadiID   *string   `db:"anganwadi_id" json:"anganwadi_id"`
	Role          string    `db:"role" json:"role"`
	ContactNumber *string   `db:"contact_number" json:"contact_number"`
	WorkingHours  *string   `db:"working_hours" json:"working_hours"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// VisitTicket schedules a worker's visit to part of a center's area.
type VisitTicket struct {
	ID                  string        `db:"id" json:"id"`
	AnganwadiID         string        `db:"anganwadi_id" json:"anganwadi_id"`
	WorkerID            string        `db:"worker_id" json:"worker_id"`
	ScheduledDate       time.Time     `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime       string        `db:"scheduled_time" json:"scheduled_time"`
	VisitType           string        `db:"visit_type" json:"visit_type"`
	Status              string        `db:"status" json:"status"`
	AssignedArea        string        `db:"assigned_area" json:"assigned_area"`
	TargetBeneficiaries Beneficiaries `db:"target_beneficiaries" json:"target_beneficiaries"`
	ReportedBy          *string       `db:"reported_by" json:"reported_by"`
	ReportedDate        *time.Time    `db:"reported_date" json:"reported_date"`
	EscalationLevel     *string       `db:"escalation_level" json:"escalation_level"`
	CoverageAreas       []string      `db:"coverage_areas" json:"coverage_areas"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}

var (
	Schema       = record.SchemaFor[Anganwadi]("anganwadis", record.OrderBy("name", true))
	WorkerSchema = record.SchemaFor[Worker]("anganwadi_workers", record.OrderBy("name", true))
	TicketSchema = record.SchemaFor[VisitTicket]("anganwadi_visit_tickets", record.OrderBy("scheduled_date", false))
)

func validVisitStatus(s string) bool {
	switch s {
	case VisitScheduled, VisitInProgress, VisitCompleted, VisitMissed, VisitCancelled:
		return true
	}
	return false
}
