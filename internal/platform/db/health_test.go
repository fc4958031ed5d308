package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/nrc/nrc/internal/platform/store"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckStores_Healthy(t *testing.T) {
	report := CheckStores(context.Background(), pingFunc(func(context.Context) error { return nil }), nil, t.TempDir())

	if report.Status != "healthy" {
		t.Errorf("expected healthy, got %s", report.Status)
	}
	if !report.Relational.Configured || !report.Relational.Healthy {
		t.Errorf("expected configured healthy relational store, got %+v", report.Relational)
	}
	if !report.CSV.Writable {
		t.Errorf("expected writable csv dir, got %+v", report.CSV)
	}
}

func TestCheckStores_UnconfiguredRelational(t *testing.T) {
	report := CheckStores(context.Background(), pingFunc(func(context.Context) error { return store.ErrUnavailable }), nil, t.TempDir())

	if report.Status != "healthy" {
		t.Errorf("an unconfigured relational store is not a fault, got %s", report.Status)
	}
	if report.Relational.Configured {
		t.Error("expected relational store to be reported unconfigured")
	}
}

func TestCheckStores_RelationalDown(t *testing.T) {
	report := CheckStores(context.Background(), pingFunc(func(context.Context) error { return errors.New("connection refused") }), nil, t.TempDir())

	if report.Status != "degraded" {
		t.Errorf("expected degraded, got %s", report.Status)
	}
	if report.Relational.Error != "connection refused" {
		t.Errorf("unexpected error %q", report.Relational.Error)
	}
}

func TestStoresHandler_UnwritableCSVDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/stores", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := StoresHandler(nil, nil, missing)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}

	var report StoresReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if report.Status != "unhealthy" || report.CSV.Writable {
		t.Errorf("unexpected report %+v", report)
	}
	if report.Relational.Configured {
		t.Error("nil relational store must be reported unconfigured")
	}
}
