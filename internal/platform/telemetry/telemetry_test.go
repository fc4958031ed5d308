package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilProviderIsNoop(t *testing.T) {
	var p *Provider
	p.StoreCall("csv", "beds", "list", "ok")
	p.Fallback("beds", "list")
	p.PartialFailure("discharge")
	p.Compensation("queued")
}

func TestCounters(t *testing.T) {
	p := NewProvider()
	p.StoreCall("sql", "patients", "get", "error")
	p.StoreCall("sql", "patients", "get", "error")
	p.Fallback("patients", "get")
	p.PartialFailure("discharge")

	if got := testutil.ToFloat64(p.storeCalls.WithLabelValues("sql", "patients", "get", "error")); got != 2 {
		t.Errorf("store calls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.fallbacks.WithLabelValues("patients", "get")); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.partialFailures.WithLabelValues("discharge")); got != 1 {
		t.Errorf("partial failures = %v, want 1", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	p := NewProvider()
	e := echo.New()
	e.Use(p.MetricsMiddleware())
	e.GET("/api/beds", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", p.PrometheusHandler())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/beds", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `nrc_http_request_duration_seconds_count{method="GET",route="/api/beds",status="200"} 1`) {
		t.Errorf("request histogram missing from exposition:\n%s", body)
	}
}
