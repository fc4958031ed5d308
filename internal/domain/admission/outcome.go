package admission

import (
	"errors"

	"github.com/nrc/nrc/internal/platform/store"
)

// Step names.
const (
	stepPatient      = "patient"
	stepBed          = "bed"
	stepCompensate   = "bed_compensation"
	stepNotification = "notification"
)

// Step is the result of one write of a cross-entity operation.
type Step struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Queued bool   `json:"queued,omitempty"`
}

// Outcome records every step of a cross-entity operation. Partial is set
// when a later step failed after an earlier one was committed.
type Outcome struct {
	Operation string `json:"operation"`
	PatientID string `json:"patient_id"`
	BedID     string `json:"bed_id,omitempty"`
	Steps     []Step `json:"steps"`
	Partial   bool   `json:"partial"`
	Warning   string `json:"warning,omitempty"`
}

func newOutcome(op, patientID, bedID string) *Outcome {
	return &Outcome{Operation: op, PatientID: patientID, BedID: bedID, Steps: []Step{}}
}

func (o *Outcome) ok(name string) {
	o.Steps = append(o.Steps, Step{Name: name, OK: true})
}

func (o *Outcome) fail(name string, err error) {
	o.Steps = append(o.Steps, Step{Name: name, Error: describe(err)})
}

// Step returns the named step, or nil.
func (o *Outcome) Step(name string) *Step {
	for i := range o.Steps {
		if o.Steps[i].Name == name {
			return &o.Steps[i]
		}
	}
	return nil
}

// describe gives a caller-safe summary of a store error.
func describe(err error) string {
	if errors.Is(err, store.ErrNotFound) {
		return "not found"
	}
	return "store operation failed"
}
