// Package metrics exposes Prometheus metrics for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's instrument set on a private registry.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	ReadingsCreated   *prometheus.CounterVec
	SalesAmount       *prometheus.CounterVec
	HandoverDisputes  prometheus.Counter
	QuotaRefusals     *prometheus.CounterVec
	OCRUploads        *prometheus.CounterVec
	AuditRowsWritten  prometheus.Counter

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fuelsync",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method, and status",
		},
		[]string{"route", "method", "status"},
	)
	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fuelsync",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	m.ReadingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fuelsync",
			Name:      "readings_created_total",
			Help:      "Meter readings created, by source",
		},
		[]string{"source"},
	)
	m.SalesAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fuelsync",
			Name:      "sales_amount_total",
			Help:      "Derived sale value, by fuel type",
		},
		[]string{"fuel_type"},
	)
	m.HandoverDisputes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fuelsync",
			Name:      "handover_disputes_total",
			Help:      "Cash handovers that opened a dispute on confirmation",
		},
	)
	m.QuotaRefusals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fuelsync",
			Name:      "quota_refusals_total",
			Help:      "Requests refused by plan quota checks, by kind",
		},
		[]string{"kind"},
	)
	m.OCRUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fuelsync",
			Name:      "ocr_uploads_total",
			Help:      "Receipt uploads by terminal status",
		},
		[]string{"status"},
	)
	m.AuditRowsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fuelsync",
			Name:      "audit_rows_written_total",
			Help:      "Audit log rows written",
		},
	)

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ReadingsCreated,
		m.SalesAmount,
		m.HandoverDisputes,
		m.QuotaRefusals,
		m.OCRUploads,
		m.AuditRowsWritten,
	)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
