// Package metrics exposes query compilation and HTTP request metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"querykit/internal/core/apperror"
	"querykit/internal/domain"
)

const namespace = "querykit"

// Metrics owns a private registry so tests and multiple servers don't collide
// on the global one.
type Metrics struct {
	registry *prometheus.Registry

	compiled        *prometheus.CounterVec
	compileFailures *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
	rows            *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var _ domain.Observer = (*Metrics)(nil)

// New registers the querykit collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		compiled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_compiled_total",
			Help:      "Number of list queries compiled, by entity.",
		}, []string{"entity"}),
		compileFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_compile_failures_total",
			Help:      "Number of list queries rejected during compilation, by entity and error code.",
		}, []string{"entity", "code"}),
		compileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_compile_duration_seconds",
			Help:      "Time spent compiling filters and orderings.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}, []string{"entity"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_returned_total",
			Help:      "Number of rows returned by list queries, by entity.",
		}, []string{"entity"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests, by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		m.compiled,
		m.compileFailures,
		m.compileDuration,
		m.rows,
		m.requests,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCompile records one compilation. Failures are counted by error code.
func (m *Metrics) ObserveCompile(entity string, took time.Duration, err error) {
	m.compileDuration.WithLabelValues(entity).Observe(took.Seconds())
	if err != nil {
		m.compileFailures.WithLabelValues(entity, apperror.Code(err)).Inc()
		return
	}
	m.compiled.WithLabelValues(entity).Inc()
}

// ObserveRows records the rows returned for entity.
func (m *Metrics) ObserveRows(entity string, rows int) {
	m.rows.WithLabelValues(entity).Add(float64(rows))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, took time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(took.Seconds())
}

// GaugeFunc registers a gauge sampled from fn at scrape time, e.g. pool usage.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}
