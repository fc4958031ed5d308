package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrc/nrc/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:             "0",
		Env:              "development",
		AuthMode:         "development",
		DBConnectTimeout: time.Second,
		CSVDataDir:       t.TempDir(),
		RetryQueueKey:    "nrc:test",
		RetryMaxAttempts: 3,
		RateLimitRPS:     1000,
		RateLimitBurst:   1000,
		BodyLimit:        "1M",
	}
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	a, err := newApp(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func serve(e http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	e := newTestApp(t).router()

	rec := serve(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, version, body["version"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_StoresHealthWithoutDatabase(t *testing.T) {
	e := newTestApp(t).router()

	rec := serve(e, http.MethodGet, "/health/stores", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status     string `json:"status"`
		Relational struct {
			Configured bool `json:"configured"`
		} `json:"relational"`
		CSV struct {
			Writable bool `json:"writable"`
		} `json:"csv"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.False(t, body.Relational.Configured)
	assert.True(t, body.CSV.Writable)
}

func TestRouter_BedsOnCSVStore(t *testing.T) {
	e := newTestApp(t).router()

	rec := serve(e, http.MethodPost, "/api/beds", `{"hospitalId":"h1","bedNumber":"B-01","ward":"Pediatric"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "available", created["status"])
	assert.Equal(t, "B-01", created["bed_number"])

	rec = serve(e, http.MethodGet, "/api/beds?hospitalId=h1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var beds []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &beds))
	require.Len(t, beds, 1)
	assert.Equal(t, created["id"], beds[0]["id"])

	rec = serve(e, http.MethodGet, "/api/beds/nonexistent-id", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_UnknownDriverDegradesToCSV(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseURL = "file::memory:"
	cfg.DatabaseDriver = "oracle"

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.handle)

	rec := serve(a.router(), http.MethodPost, "/api/beds", `{"hospital_id":"h1","ward":"ICU"}`)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRouter_MetricsArePublic(t *testing.T) {
	e := newTestApp(t).router()
	serve(e, http.MethodGet, "/health", "")

	rec := serve(e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nrc_http_request_duration_seconds")
}

func TestRouter_ReconcileWithEmptyQueue(t *testing.T) {
	e := newTestApp(t).router()

	rec := serve(e, http.MethodPost, "/api/admin/reconcile", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"applied":0,"retried":0,"dropped":[]}`, rec.Body.String())
}

func TestRouter_ProductionAuthRejectsAnonymous(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	cfg.AuthMode = "jwt"
	cfg.JWTSecret = "test-secret-test-secret-test-secret"

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	e := a.router()

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/api/beds", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/health", "").Code)
}
