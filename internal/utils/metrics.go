// internal/utils/metrics.go
package utils

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes recorded by the generation service.
const (
	OutcomeSuccess           = "success"
	OutcomeValidation        = "validation"
	OutcomeMissingCredential = "missing_credential"
	OutcomeFailed            = "failed"
	OutcomeConflict          = "conflict"
)

// MetricsCollector owns the Prometheus collectors of the service.
type MetricsCollector struct {
	Registry *prometheus.Registry

	RequestCounter     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	Generations        *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	GenerationsActive  prometheus.Gauge
	Exports            *prometheus.CounterVec
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// GetMetricsCollector returns the process-wide collector.
func GetMetricsCollector() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsCollector()
	})
	return globalMetrics
}

// NewMetricsCollector builds collectors on a fresh registry.
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{
		Registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "endpoint"},
		),
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dll_generations_total",
				Help: "Generation attempts by outcome",
			},
			[]string{"outcome"},
		),
		GenerationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dll_generation_duration_seconds",
				Help:    "Duration of upstream generation calls",
				Buckets: []float64{5, 15, 30, 60, 120, 240, 480},
			},
		),
		GenerationsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dll_generations_in_flight",
				Help: "Generation calls currently running",
			},
		),
		Exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dll_exports_total",
				Help: "Exports by format and result",
			},
			[]string{"format", "result"},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCounter,
		m.RequestDuration,
		m.Generations,
		m.GenerationDuration,
		m.GenerationsActive,
		m.Exports,
	)
	return m
}

// RecordGeneration counts one attempt and, when it reached the provider, its duration.
func (m *MetricsCollector) RecordGeneration(outcome string, elapsed time.Duration) {
	m.Generations.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.GenerationDuration.Observe(elapsed.Seconds())
	}
}

// RecordExport counts one export.
func (m *MetricsCollector) RecordExport(format string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Exports.WithLabelValues(format, result).Inc()
}

// Middleware records request counts and latencies.
func (m *MetricsCollector) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestCounter.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsCollector) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
