package db

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/nrc/nrc/internal/platform/store"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// Pinger is a store that can check its own connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RelationalHealth is the relational store part of the stores report.
type RelationalHealth struct {
	Configured bool       `json:"configured"`
	Healthy    bool       `json:"healthy"`
	Error      string     `json:"error,omitempty"`
	Pool       *PoolStats `json:"pool,omitempty"`
}

// CSVHealth is the flat-file store part of the stores report.
type CSVHealth struct {
	Dir      string `json:"dir"`
	Writable bool   `json:"writable"`
	Error    string `json:"error,omitempty"`
}

// StoresReport is the body of the stores health endpoint.
type StoresReport struct {
	Status     string           `json:"status"`
	Relational RelationalHealth `json:"relational"`
	CSV        CSVHealth        `json:"csv"`
}

// CheckStores reports on both backends. The overall status is "unhealthy"
// when the CSV directory is not writable, "degraded" when a configured
// relational store does not answer and "healthy" otherwise.
func CheckStores(ctx context.Context, relational Pinger, pool *pgxpool.Pool, csvDir string) StoresReport {
	report := StoresReport{Status: "healthy", CSV: CSVHealth{Dir: csvDir}}

	if relational != nil {
		err := relational.Ping(ctx)
		switch {
		case errors.Is(err, store.ErrUnavailable):
		case err != nil:
			report.Relational.Configured = true
			report.Relational.Error = err.Error()
			report.Status = "degraded"
		default:
			report.Relational.Configured = true
			report.Relational.Healthy = true
		}
	}
	if pool != nil {
		report.Relational.Pool = GetPoolStats(pool)
		report.Relational.Pool.Healthy = report.Relational.Healthy
	}

	if err := probeDir(csvDir); err != nil {
		report.CSV.Error = err.Error()
		report.Status = "unhealthy"
	} else {
		report.CSV.Writable = true
	}
	return report
}

func probeDir(dir string) error {
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// StoresHandler returns a handler for the stores health endpoint.
func StoresHandler(relational Pinger, pool *pgxpool.Pool, csvDir string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		report := CheckStores(ctx, relational, pool, csvDir)
		code := http.StatusOK
		if report.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, report)
	}
}
