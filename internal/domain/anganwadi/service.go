// Package anganwadi holds the community centers, their workers and the
// visit tickets that schedule field work.
package anganwadi

import (
	"context"
	"errors"
	"strings"

	"github.com/nrc/nrc/internal/platform/auth"
	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/resource"
	"github.com/nrc/nrc/internal/platform/store"
)

// Services bundles the three entity services. Workers and tickets check that
// the centers and workers they reference exist.
type Services struct {
	Centers *resource.Service[Anganwadi]
	Workers *resource.Service[Worker]
	Tickets *resource.Service[VisitTicket]
}

func NewServices(backend store.Backend) *Services {
	s := &Services{}
	s.Centers = resource.NewService(store.NewTable[Anganwadi](Schema, backend),
		resource.WithPrepare(prepareCenter),
		resource.WithPatchCheck[Anganwadi](requireNonEmpty("name")),
	)
	s.Workers = resource.NewService(store.NewTable[Worker](WorkerSchema, backend),
		resource.WithPrepare(s.prepareWorker),
		resource.WithPatchCheck[Worker](requireNonEmpty("name", "employee_id")),
	)
	s.Tickets = resource.NewService(store.NewTable[VisitTicket](TicketSchema, backend),
		resource.WithPrepare(s.prepareTicket),
		resource.WithPatchCheck[VisitTicket](checkTicketPatch),
	)
	return s
}

func prepareCenter(_ context.Context, a *Anganwadi) error {
	if strings.TrimSpace(a.Name) == "" {
		return resource.Invalid("name is required")
	}
	a.IsActive = true
	if a.Facilities == nil {
		a.Facilities = []string{}
	}
	if a.CoverageAreas == nil {
		a.CoverageAreas = []string{}
	}
	return nil
}

func (s *Services) prepareWorker(ctx context.Context, w *Worker) error {
	if strings.TrimSpace(w.Name) == "" {
		return resource.Invalid("name is required")
	}
	if strings.TrimSpace(w.EmployeeID) == "" {
		return resource.Invalid("employee_id is required")
	}
	if w.Role == "" {
		w.Role = auth.RoleAnganwadiWorker
	}
	w.IsActive = true
	if w.AnganwadiID != nil && *w.AnganwadiID != "" {
		if err := exists(ctx, s.Centers, *w.AnganwadiID, "anganwadi"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Services) prepareTicket(ctx context.Context, t *VisitTicket) error {
	if t.AnganwadiID == "" {
		return resource.Invalid("anganwadi_id is required")
	}
	if t.WorkerID == "" {
		return resource.Invalid("worker_id is required")
	}
	if t.ScheduledDate.IsZero() {
		return resource.Invalid("scheduled_date is required")
	}
	if t.Status == "" {
		t.Status = VisitScheduled
	}
	if !validVisitStatus(t.Status) {
		return resource.Invalid("unknown visit status %q", t.Status)
	}
	if t.CoverageAreas == nil {
		t.CoverageAreas = []string{}
	}
	if err := exists(ctx, s.Centers, t.AnganwadiID, "anganwadi"); err != nil {
		return err
	}
	return exists(ctx, s.Workers, t.WorkerID, "worker")
}

func checkTicketPatch(patch record.Values) error {
	if err := requireNonEmpty("anganwadi_id", "worker_id")(patch); err != nil {
		return err
	}
	if v, ok := patch["status"]; ok {
		s, _ := v.(string)
		if !validVisitStatus(s) {
			return resource.Invalid("unknown visit status %q", s)
		}
	}
	return nil
}

// requireNonEmpty rejects a patch that clears any of the named columns.
func requireNonEmpty(cols ...string) func(record.Values) error {
	return func(patch record.Values) error {
		for _, col := range cols {
			v, ok := patch[col]
			if !ok {
				continue
			}
			if s, _ := v.(string); strings.TrimSpace(s) == "" {
				return resource.Invalid("%s must not be empty", col)
			}
		}
		return nil
	}
}

func exists[T any](ctx context.Context, svc *resource.Service[T], id, what string) error {
	_, err := svc.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return resource.Invalid("unknown %s %q", what, id)
	}
	return err
}
