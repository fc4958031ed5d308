package admission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/nrc/nrc/internal/domain/bed"
	"github.com/nrc/nrc/internal/platform/auth"
	"github.com/nrc/nrc/internal/platform/retryqueue"
)

func newRequest(e *echo.Echo, body, id string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), "user-1", auth.RoleHospital))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func httpCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func TestHandler_DischargeAcceptsCamelCase(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc, retryqueue.DefaultConfig()), echo.New()
	p := f.patient(t, "Asha")
	b := f.bed(t, "P-1", bed.StatusAvailable)
	f.admit(t, p, b)

	c, rec := newRequest(e, `{"bedId":"`+b.ID+`","reason":"Recovered"}`, p.ID)
	if err := h.Discharge(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out Outcome
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Partial || out.BedID != b.ID {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if f.getBed(t, b.ID).Status != bed.StatusMaintenance {
		t.Error("bed not released")
	}
}

func TestHandler_DischargePartialIsStill200(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc, retryqueue.DefaultConfig()), echo.New()
	p := f.patient(t, "Asha")
	b := f.bed(t, "P-1", bed.StatusAvailable)
	f.admit(t, p, b)
	f.beds.failUpdates = 1

	c, rec := newRequest(e, `{"bed_id":"`+b.ID+`","reason":"Recovered"}`, p.ID)
	if err := h.Discharge(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Error("store error details leaked into the response")
	}
	if !strings.Contains(rec.Body.String(), `"partial":true`) {
		t.Errorf("expected partial outcome, got %s", rec.Body.String())
	}
}

func TestHandler_DischargeErrors(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc, retryqueue.DefaultConfig()), echo.New()
	p := f.patient(t, "Asha")
	other := f.patient(t, "Meera")
	b := f.bed(t, "P-1", bed.StatusAvailable)
	f.admit(t, other, b)

	c, _ := newRequest(e, `{"reason":"Recovered"}`, "")
	if code := httpCode(h.Discharge(c)); code != http.StatusBadRequest {
		t.Errorf("missing patient id: expected 400, got %d", code)
	}
	c, _ = newRequest(e, `{"bedId":"`+b.ID+`"}`, p.ID)
	if code := httpCode(h.Discharge(c)); code != http.StatusConflict {
		t.Errorf("bed held by another patient: expected 409, got %d", code)
	}
	c, _ = newRequest(e, `{"reason":"Recovered"}`, "nonexistent-id")
	if code := httpCode(h.Discharge(c)); code != http.StatusNotFound {
		t.Errorf("missing patient: expected 404, got %d", code)
	}
}

func TestHandler_AssignBedConflict(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc, retryqueue.DefaultConfig()), echo.New()
	p := f.patient(t, "Asha")
	b := f.bed(t, "P-1", bed.StatusMaintenance)

	c, _ := newRequest(e, `{"bedId":"`+b.ID+`"}`, p.ID)
	if code := httpCode(h.AssignBed(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestHandler_ReactivateIncomplete(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc, retryqueue.DefaultConfig()), echo.New()
	p := f.patient(t, "Asha")
	b := f.bed(t, "P-1", bed.StatusAvailable)
	c, _ := newRequest(e, `{"reason":"Recovered"}`, p.ID)
	if err := h.Discharge(c); err != nil {
		t.Fatal(err)
	}
	f.beds.failUpdates = 1

	c, rec := newRequest(e, `{"bedId":"`+b.ID+`"}`, p.ID)
	if err := h.Reactivate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"outcome"`) {
		t.Errorf("expected the outcome in the body, got %s", rec.Body.String())
	}
}

func TestHandler_RequestAndRelease(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc, retryqueue.DefaultConfig()), echo.New()
	p := f.patient(t, "Asha")

	c, rec := newRequest(e, `{"reason":"Weight recovered"}`, p.ID)
	if err := h.RequestDischarge(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var n struct {
		ID string `json:"id"`
	}
	json.Unmarshal(rec.Body.Bytes(), &n)

	c, rec = newRequest(e, `{}`, n.ID)
	if err := h.Release(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newRequest(e, `{}`, n.ID)
	if code := httpCode(h.Release(c)); code != http.StatusConflict {
		t.Errorf("second release: expected 409, got %d", code)
	}
}

func TestHandler_ConsistencyAndReconcile(t *testing.T) {
	f := newFixture(t)
	h, e := NewHandler(f.svc, retryqueue.Config{MaxAttempts: 2, BackoffFactor: 2}), echo.New()
	p := f.patient(t, "Asha")
	b := f.bed(t, "P-1", bed.StatusAvailable)
	f.admit(t, p, b)
	f.beds.failUpdates = 1
	if _, err := f.svc.Discharge(context.Background(), p.ID, b.ID, "Recovered"); err != nil {
		t.Fatal(err)
	}

	c, rec := newRequest(e, "", "")
	if err := h.Consistency(c); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"consistent":false`) {
		t.Errorf("expected inconsistency, got %s", rec.Body.String())
	}

	c, rec = newRequest(e, "", "")
	if err := h.Reconcile(c); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"applied":1`) {
		t.Errorf("expected one applied task, got %s", rec.Body.String())
	}

	c, rec = newRequest(e, "", "")
	if err := h.Consistency(c); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"consistent":true`) {
		t.Errorf("expected consistency after reconcile, got %s", rec.Body.String())
	}
}
