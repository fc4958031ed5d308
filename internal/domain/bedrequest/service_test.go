package bedrequest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrc/nrc/internal/domain/notification"
	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/resource"
	"github.com/nrc/nrc/internal/platform/store"
)

type mockRepo struct {
	items map[string]*BedRequest
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[string]*BedRequest)}
}

func (m *mockRepo) Create(_ context.Context, br *BedRequest) error {
	br.ID = fmt.Sprintf("br-%d", len(m.items)+1)
	br.CreatedAt = time.Now()
	cp := *br
	m.items[br.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*BedRequest, error) {
	br, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *br
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, id string, patch record.Values) (*BedRequest, error) {
	br, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := Schema.Decode(patch, br); err != nil {
		return nil, err
	}
	cp := *br
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]*BedRequest, int, error) {
	var out []*BedRequest
	for _, br := range m.items {
		if f.Status != "" && br.Status != f.Status {
			continue
		}
		cp := *br
		out = append(out, &cp)
	}
	return out, len(out), nil
}

type recordingNotifier struct {
	sent []*notification.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n *notification.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func validInput() record.Values {
	return record.Values{
		"patient_id":            "p1",
		"urgency_level":         "high",
		"medical_justification": "Severe wasting",
	}
}

func TestService_Create(t *testing.T) {
	n := &recordingNotifier{}
	svc := NewService(newMockRepo(), n, zerolog.Nop())
	in := validInput()
	in["status"] = StatusApproved

	br, err := svc.Create(context.Background(), in, "worker-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if br.Status != StatusPending {
		t.Errorf("a new request must be pending, got %s", br.Status)
	}
	if br.RequestedBy != "worker-1" || br.RequestDate.IsZero() {
		t.Errorf("unexpected request metadata: %+v", br)
	}
	if len(n.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(n.sent))
	}
	if n.sent[0].UserRole != "hospital" || n.sent[0].Priority != notification.PriorityHigh {
		t.Errorf("unexpected notification: %+v", n.sent[0])
	}
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v record.Values)
	}{
		{"no patient", func(v record.Values) { delete(v, "patient_id") }},
		{"bad urgency", func(v record.Values) { v["urgency_level"] = "whenever" }},
		{"no justification", func(v record.Values) { v["medical_justification"] = "" }},
		{"negative stay", func(v record.Values) { v["estimated_stay_duration"] = int64(-2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			svc := NewService(newMockRepo(), nil, zerolog.Nop())
			if _, err := svc.Create(context.Background(), in, "u"); !resource.IsInvalid(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_NotificationFailureDoesNotFailCreate(t *testing.T) {
	svc := NewService(newMockRepo(), &recordingNotifier{err: errors.New("store down")}, zerolog.Nop())
	in := validInput()
	if _, err := svc.Create(context.Background(), in, "u"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestService_Review(t *testing.T) {
	n := &recordingNotifier{}
	svc := NewService(newMockRepo(), n, zerolog.Nop())
	ctx := context.Background()
	in := validInput()
	br, _ := svc.Create(ctx, in, "worker-1")
	n.sent = nil

	reviewed, err := svc.Review(ctx, br.ID, record.Values{"status": StatusApproved, "review_comments": "Bed 4"}, "doctor-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reviewed.Status != StatusApproved || reviewed.ReviewedBy == nil || *reviewed.ReviewedBy != "doctor-1" {
		t.Errorf("unexpected review: %+v", reviewed)
	}
	if reviewed.ReviewDate == nil {
		t.Error("expected a review date")
	}
	if len(n.sent) != 1 || *n.sent[0].UserID != "worker-1" || n.sent[0].NotificationType != notification.TypeBedApproval {
		t.Errorf("expected the requester to be notified, got %+v", n.sent)
	}

	n.sent = nil
	if _, err := svc.Review(ctx, br.ID, record.Values{"review_comments": "updated"}, "doctor-1"); err != nil {
		t.Fatal(err)
	}
	if len(n.sent) != 0 {
		t.Error("a patch without a decision must not notify")
	}

	if _, err := svc.Review(ctx, br.ID, record.Values{"status": "maybe"}, "doctor-1"); !resource.IsInvalid(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := svc.Review(ctx, "nonexistent-id", record.Values{"status": StatusRejected}, "doctor-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
