package patient

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/resource"
)

// Fields owned by the registration and admission workflows. Register ignores
// them in caller input.
var systemFields = []string{
	"id", "registration_number", "is_active", "bed_id",
	"discharge_date", "discharge_reason", "last_bed_id", "last_admission_date",
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register creates an active, bedless patient with a REG-<millis>
// registration number. registeredBy is used when the input names no
// registering worker.
func (s *Service) Register(ctx context.Context, input record.Values, registeredBy string) (*Patient, error) {
	input = input.Clone()
	for _, f := range systemFields {
		delete(input, f)
	}

	p := &Patient{}
	if err := Schema.Decode(input, p); err != nil {
		return nil, resource.Invalid("%v", err)
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p.RegistrationNumber = "REG-" + strconv.FormatInt(record.NextMillis(), 10)
	p.IsActive = true
	if p.RegisteredBy == "" {
		p.RegisteredBy = registeredBy
	}
	if p.RegistrationDate.IsZero() {
		p.RegistrationDate = now
	}
	if p.AdmissionDate == nil {
		today := now.Truncate(24 * time.Hour)
		p.AdmissionDate = &today
	}
	for _, list := range []*[]string{&p.MedicalHistory, &p.Symptoms, &p.NutritionalDeficiency, &p.Documents, &p.Photos} {
		if *list == nil {
			*list = []string{}
		}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func validate(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return resource.Invalid("name is required")
	}
	if p.Age < 0 {
		return resource.Invalid("age must not be negative")
	}
	if !ValidType(p.Type) {
		return resource.Invalid("type must be one of %s, %s, %s", TypeChild, TypePregnantWoman, TypeLactatingMother)
	}
	if p.PregnancyWeek != nil {
		if p.Type != TypePregnantWoman {
			return resource.Invalid("pregnancy_week is only valid for %s", TypePregnantWoman)
		}
		if *p.PregnancyWeek < 1 || *p.PregnancyWeek > 42 {
			return resource.Invalid("pregnancy_week must be between 1 and 42")
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns active patients, or discharged ones when f.Active is false.
// The archive lists the most recent discharge first.
func (s *Service) List(ctx context.Context, f Filter) ([]*Patient, error) {
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if f.Active != nil && !*f.Active {
		slices.SortStableFunc(items, func(a, b *Patient) int {
			return compareDesc(a.DischargeDate, b.DischargeDate)
		})
	}
	return items, nil
}

func compareDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return b.Compare(*a)
}

// Update applies a clinical or administrative patch. Bed links are not
// propagated to the bed; the admission workflows do that.
func (s *Service) Update(ctx context.Context, id string, patch record.Values) (*Patient, error) {
	patch = patch.Clone()
	delete(patch, "registration_number")
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, patch)
}

func validatePatch(patch record.Values) error {
	if v, ok := patch["name"]; ok {
		name, _ := v.(string)
		if strings.TrimSpace(name) == "" {
			return resource.Invalid("name must not be empty")
		}
	}
	if v, ok := patch["age"]; ok {
		if age, _ := v.(int64); v == nil || age < 0 {
			return resource.Invalid("age must not be negative")
		}
	}
	if v, ok := patch["type"]; ok {
		t, _ := v.(string)
		if !ValidType(t) {
			return resource.Invalid("unknown patient type %q", t)
		}
		if patch["pregnancy_week"] != nil && t != TypePregnantWoman {
			return resource.Invalid("pregnancy_week is only valid for %s", TypePregnantWoman)
		}
	}
	if v, ok := patch["is_active"]; ok && v == nil {
		return resource.Invalid("is_active must not be null")
	}
	return nil
}
