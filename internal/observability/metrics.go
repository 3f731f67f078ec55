package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private Prometheus registry with the service's collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	namespace      string
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	jobsEnqueued   *prometheus.CounterVec
	jobTransitions *prometheus.CounterVec
}

// NewMetrics initializes the registry. namespace is sanitized into a metric prefix.
func NewMetrics(namespace string) *Metrics {
	ns := sanitizeNamespace(namespace)
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry:  registry,
		namespace: ns,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_errors_total",
			Help:      "Failed HTTP requests by route, method and error code.",
		}, []string{"route", "method", "code"}),
		jobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "queue_jobs_enqueued_total",
			Help:      "Jobs added to the queue by type.",
		}, []string{"type"}),
		jobTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "queue_job_transitions_total",
			Help:      "Job state transitions by type and the status entered.",
		}, []string{"type", "status"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.errors,
		m.jobsEnqueued,
		m.jobTransitions,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterGauge exposes a value sampled at scrape time.
func (m *Metrics) RegisterGauge(name, help string, sample func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	}, sample))
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordJobEnqueued counts a new job.
func (m *Metrics) RecordJobEnqueued(jobType string) {
	if m == nil {
		return
	}
	m.jobsEnqueued.WithLabelValues(jobType).Inc()
}

// RecordJobTransition counts a job entering status.
func (m *Metrics) RecordJobTransition(jobType, status string) {
	if m == nil {
		return
	}
	m.jobTransitions.WithLabelValues(jobType, status).Inc()
}

func sanitizeNamespace(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
