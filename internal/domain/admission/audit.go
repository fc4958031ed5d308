package admission

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nrc/nrc/internal/domain/bed"
	"github.com/nrc/nrc/internal/domain/patient"
	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/retryqueue"
	"github.com/nrc/nrc/internal/platform/store"
)

// Issue kinds reported by Audit.
const (
	IssueOccupiedWithoutPatient = "occupied_without_patient"
	IssueLinkedNotOccupied      = "linked_but_not_occupied"
	IssueUnknownPatient         = "unknown_patient"
	IssueDischargedInBed        = "discharged_patient_in_bed"
	IssuePatientElsewhere       = "patient_points_elsewhere"
	IssueMultipleBeds           = "patient_in_multiple_beds"
	IssueUnknownBed             = "unknown_bed"
	IssueBedElsewhere           = "bed_points_elsewhere"
)

// Issue is one broken link between a bed and a patient.
type Issue struct {
	Kind      string `json:"kind"`
	BedID     string `json:"bed_id,omitempty"`
	PatientID string `json:"patient_id,omitempty"`
	Detail    string `json:"detail"`
}

// Report is the result of a consistency audit.
type Report struct {
	Beds       int     `json:"beds"`
	Patients   int     `json:"patients"`
	Issues     []Issue `json:"issues"`
	Consistent bool    `json:"consistent"`
}

// Audit compares every bed's patient_id with every patient's bed_id and
// reports the pairs that disagree. It only reads.
func (s *Service) Audit(ctx context.Context) (*Report, error) {
	beds, err := s.beds.List(ctx, bed.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list beds: %w", err)
	}
	active := true
	activePatients, err := s.patients.List(ctx, patient.Filter{Active: &active})
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	inactive := false
	archived, err := s.patients.List(ctx, patient.Filter{Active: &inactive})
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	patients := make(map[string]*patient.Patient, len(activePatients)+len(archived))
	for _, p := range append(activePatients, archived...) {
		patients[p.ID] = p
	}
	bedsByID := make(map[string]*bed.Bed, len(beds))
	holders := make(map[string][]string)
	for _, b := range beds {
		bedsByID[b.ID] = b
		if occ := b.Occupant(); occ != "" {
			holders[occ] = append(holders[occ], b.ID)
		}
	}

	rep := &Report{Beds: len(beds), Patients: len(patients), Issues: []Issue{}}
	add := func(kind, bedID, patientID, detail string) {
		rep.Issues = append(rep.Issues, Issue{Kind: kind, BedID: bedID, PatientID: patientID, Detail: detail})
	}

	for _, b := range beds {
		occ := b.Occupant()
		switch {
		case b.Status == bed.StatusOccupied && occ == "":
			add(IssueOccupiedWithoutPatient, b.ID, "", "bed is occupied but names no patient")
			continue
		case occ != "" && b.Status != bed.StatusOccupied && b.Status != bed.StatusReserved:
			add(IssueLinkedNotOccupied, b.ID, occ, "bed is "+b.Status+" but names a patient")
		}
		if occ == "" {
			continue
		}
		p, ok := patients[occ]
		switch {
		case !ok:
			add(IssueUnknownPatient, b.ID, occ, "bed names a patient that does not exist")
		case !p.IsActive:
			add(IssueDischargedInBed, b.ID, occ, "bed holds a discharged patient")
		case b.Status == bed.StatusOccupied && (!p.HasBed() || *p.BedID != b.ID):
			add(IssuePatientElsewhere, b.ID, occ, "patient does not point back at this bed")
		}
	}
	for pid, ids := range holders {
		if len(ids) > 1 {
			add(IssueMultipleBeds, "", pid, fmt.Sprintf("patient is named by %d beds", len(ids)))
		}
	}
	for _, p := range activePatients {
		if !p.HasBed() {
			continue
		}
		b, ok := bedsByID[*p.BedID]
		switch {
		case !ok:
			add(IssueUnknownBed, *p.BedID, p.ID, "patient points at a bed that does not exist")
		case b.Occupant() != p.ID:
			add(IssueBedElsewhere, b.ID, p.ID, "bed does not point back at this patient")
		}
	}

	sort.Slice(rep.Issues, func(i, j int) bool {
		a, b := rep.Issues[i], rep.Issues[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.BedID != b.BedID {
			return a.BedID < b.BedID
		}
		return a.PatientID < b.PatientID
	})
	rep.Consistent = len(rep.Issues) == 0
	return rep, nil
}

// Replay drains the retry queue, applying each queued patch to its entity.
// A target that no longer exists is logged and dropped from the queue. A bed
// patch whose workflow has since been overtaken is skipped.
func (s *Service) Replay(ctx context.Context, cfg retryqueue.Config) (retryqueue.Result, error) {
	if s.queue == nil {
		return retryqueue.Result{Dropped: []retryqueue.Task{}}, nil
	}
	return retryqueue.Drain(ctx, s.queue, s.apply, cfg, s.logger, s.telemetry)
}

func (s *Service) apply(ctx context.Context, t retryqueue.Task) error {
	var err error
	switch t.Kind {
	case retryqueue.KindBedUpdate:
		var patch record.Values
		if patch, err = record.Normalize(bed.Schema, t.Patch); err == nil {
			if err = s.stillApplies(ctx, t); err == nil {
				_, err = s.beds.Update(ctx, t.EntityID, patch)
			}
		}
	case retryqueue.KindPatientUpdate:
		var patch record.Values
		if patch, err = record.Normalize(patient.Schema, t.Patch); err == nil {
			_, err = s.patients.Update(ctx, t.EntityID, patch)
		}
	default:
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn().Str("kind", t.Kind).Str("entity_id", t.EntityID).Msg("compensation target no longer exists")
		return nil
	}
	return err
}

// stillApplies re-reads the bed and its patient and returns ErrStale when
// the state the queued bed patch was written for is gone. Tasks that name no
// workflow are applied as they are.
func (s *Service) stillApplies(ctx context.Context, t retryqueue.Task) error {
	if t.Operation == "" || t.PatientID == "" {
		return nil
	}
	b, err := s.beds.GetByID(ctx, t.EntityID)
	if err != nil {
		return err
	}
	occ := b.Occupant()
	p, err := s.patients.GetByID(ctx, t.PatientID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	var linked, active bool
	if p != nil {
		active = p.IsActive
		linked = p.HasBed() && *p.BedID == b.ID
	}

	switch t.Operation {
	case "discharge":
		// Release only a bed that still holds the discharged patient.
		if occ != "" && occ != t.PatientID {
			return fmt.Errorf("%w: bed %s now holds patient %s", retryqueue.ErrStale, b.ID, occ)
		}
		if active {
			return fmt.Errorf("%w: patient %s was reactivated", retryqueue.ErrStale, t.PatientID)
		}
	case "reactivate":
		if !active || !linked {
			return fmt.Errorf("%w: patient %s no longer points at bed %s", retryqueue.ErrStale, t.PatientID, b.ID)
		}
		if occ != "" && occ != t.PatientID {
			return fmt.Errorf("%w: bed %s now holds patient %s", retryqueue.ErrStale, b.ID, occ)
		}
	case "assign_bed":
		// The restore undoes our own occupy write; it must still be there
		// and the patient must not have been linked since.
		if occ != t.PatientID || linked {
			return fmt.Errorf("%w: bed %s was changed after the failed admission", retryqueue.ErrStale, b.ID)
		}
	}
	return nil
}
