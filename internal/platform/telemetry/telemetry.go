// Package telemetry exposes Prometheus metrics for HTTP traffic, store
// backends and the cross-entity consistency operations.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nrc"

// Provider owns a private registry and the collectors registered on it.
// A nil *Provider is valid and records nothing.
type Provider struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	storeCalls      *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	partialFailures *prometheus.CounterVec
	compensations   *prometheus.CounterVec
}

// NewProvider creates a Provider with Go runtime and process collectors.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	p := &Provider{
		registry: reg,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "Requests currently being served.",
		}),
		storeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_calls_total",
			Help:      "Store backend calls by backend, table, operation and outcome.",
		}, []string{"backend", "table", "op", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_fallbacks_total",
			Help:      "Calls answered by the secondary store after the primary failed.",
		}, []string{"table", "op"}),
		partialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consistency_partial_failures_total",
			Help:      "Cross-entity operations whose second step failed after the first committed.",
		}, []string{"operation"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Queued compensations by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.requestDuration,
		p.activeRequests,
		p.storeCalls,
		p.fallbacks,
		p.partialFailures,
		p.compensations,
	)
	return p
}

// Registry returns the registry backing the provider.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// StoreCall records the outcome ("ok", "not_found" or "error") of one
// backend call.
func (p *Provider) StoreCall(backend, table, op, outcome string) {
	if p == nil {
		return
	}
	p.storeCalls.WithLabelValues(backend, table, op, outcome).Inc()
}

// Fallback records a call that moved from the primary to the secondary store.
func (p *Provider) Fallback(table, op string) {
	if p == nil {
		return
	}
	p.fallbacks.WithLabelValues(table, op).Inc()
}

// PartialFailure records a cross-entity operation left half applied.
func (p *Provider) PartialFailure(operation string) {
	if p == nil {
		return
	}
	p.partialFailures.WithLabelValues(operation).Inc()
}

// Compensation records the result of a queued compensation: "queued",
// "applied", "skipped", "retried" or "dropped".
func (p *Provider) Compensation(result string) {
	if p == nil {
		return
	}
	p.compensations.WithLabelValues(result).Inc()
}

// MetricsMiddleware records request latency and in-flight requests.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p == nil {
				return next(c)
			}
			p.activeRequests.Inc()
			defer p.activeRequests.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			p.requestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// PrometheusHandler serves the registry in the Prometheus exposition format.
func (p *Provider) PrometheusHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
}
