package bed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/resource"
)

// ErrInvalidTransition is returned when a status change is not allowed from
// the bed's current status.
var ErrInvalidTransition = errors.New("bed status transition not allowed")

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "bed").Logger()}
}

// Create adds a bed. Status defaults to available. An occupied bed must name
// its patient and any other status must not.
func (s *Service) Create(ctx context.Context, input record.Values) (*Bed, error) {
	input = input.Clone()
	delete(input, "id")

	b := &Bed{}
	if err := Schema.Decode(input, b); err != nil {
		return nil, resource.Invalid("%v", err)
	}
	b.Ward = strings.TrimSpace(b.Ward)
	if b.Ward == "" {
		return nil, resource.Invalid("ward is required")
	}
	if b.Status == "" {
		b.Status = StatusAvailable
	}
	if !ValidStatus(b.Status) {
		return nil, resource.Invalid("unknown bed status %q", b.Status)
	}
	switch occupied := b.Occupant() != ""; {
	case b.Status == StatusOccupied && !occupied:
		return nil, resource.Invalid("an occupied bed needs patient_id")
	case b.Status != StatusOccupied && occupied:
		return nil, resource.Invalid("a %s bed cannot reference a patient", b.Status)
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Bed, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Bed, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, resource.Invalid("unknown bed status %q", f.Status)
	}
	return s.repo.List(ctx, f)
}

// Update applies patch as given. The patient side of a link is not touched:
// callers changing occupancy go through the admission workflows or issue both
// updates themselves. A bed left referencing a patient while not occupied is
// logged.
func (s *Service) Update(ctx context.Context, id string, patch record.Values) (*Bed, error) {
	if v, ok := patch["status"]; ok {
		st, _ := v.(string)
		if !ValidStatus(st) {
			return nil, resource.Invalid("unknown bed status %q", st)
		}
	}
	b, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusOccupied && b.Occupant() != "" {
		s.logger.Warn().
			Str("bed_id", b.ID).
			Str("patient_id", b.Occupant()).
			Str("status", b.Status).
			Msg("bed references a patient but is not occupied")
	}
	return b, nil
}

// MarkAvailable moves a maintenance or reserved bed back into service.
func (s *Service) MarkAvailable(ctx context.Context, id string) (*Bed, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case StatusAvailable:
		return b, nil
	case StatusOccupied:
		return nil, fmt.Errorf("%w: bed %s is occupied", ErrInvalidTransition, id)
	}
	patch := ReleasePatch()
	patch["status"] = StatusAvailable
	return s.repo.Update(ctx, id, patch)
}

// MarkMaintenance takes an available or reserved bed out of service.
func (s *Service) MarkMaintenance(ctx context.Context, id string) (*Bed, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case StatusMaintenance:
		return b, nil
	case StatusOccupied:
		return nil, fmt.Errorf("%w: bed %s is occupied", ErrInvalidTransition, id)
	}
	return s.repo.Update(ctx, id, record.Values{"status": StatusMaintenance})
}

// Occupancy summarises bed usage for a hospital, or for all beds when
// hospitalID is empty.
type Occupancy struct {
	HospitalID    string  `json:"hospital_id,omitempty"`
	Total         int     `json:"total"`
	Available     int     `json:"available"`
	Occupied      int     `json:"occupied"`
	Maintenance   int     `json:"maintenance"`
	Reserved      int     `json:"reserved"`
	OccupancyRate float64 `json:"occupancy_rate"`
	Demand        string  `json:"demand"`
}

func (s *Service) Occupancy(ctx context.Context, hospitalID string) (*Occupancy, error) {
	beds, err := s.repo.List(ctx, Filter{HospitalID: hospitalID})
	if err != nil {
		return nil, err
	}
	o := &Occupancy{HospitalID: hospitalID, Total: len(beds)}
	for _, b := range beds {
		switch b.Status {
		case StatusAvailable:
			o.Available++
		case StatusOccupied:
			o.Occupied++
		case StatusMaintenance:
			o.Maintenance++
		case StatusReserved:
			o.Reserved++
		}
	}
	if o.Total > 0 {
		o.OccupancyRate = math.Round(float64(o.Occupied)/float64(o.Total)*1000) / 10
	}
	o.Demand = demand(o.OccupancyRate)
	return o, nil
}

func demand(rate float64) string {
	switch {
	case rate > 70:
		return "high"
	case rate > 50:
		return "medium"
	default:
		return "low"
	}
}
