// Package metrics owns the Prometheus registry for a link-check process and
// the collectors that are not driven by progress events.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles a private registry with the limiter and status-server
// collectors.
type Metrics struct {
	registry *prometheus.Registry

	permitsInUse    prometheus.Gauge
	permitsAcquired prometheus.Counter
	permitWait      prometheus.Histogram

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
}

// New creates a registry with Go runtime and process collectors plus the
// link-check collectors.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		permitsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "linkcheck_permits_in_use",
			Help: "Fetch permits currently held.",
		}),
		permitsAcquired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkcheck_permits_acquired_total",
			Help: "Fetch permits granted.",
		}),
		permitWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkcheck_permit_wait_seconds",
			Help:    "Time spent waiting for a fetch permit.",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkcheck_http_requests_total",
			Help: "Status server requests, labeled by method and code.",
		}, []string{"method", "code"}),
		httpRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linkcheck_http_request_duration_seconds",
			Help:    "Status server latency, labeled by method and route.",
			Buckets: []float64{0.005, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route"}),
	}
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.permitsInUse,
		m.permitsAcquired,
		m.permitWait,
		m.httpRequestsTotal,
		m.httpRequestDurationSeconds,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// Registry exposes the registry so other components can add collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// PermitAcquired records a granted permit and how long the task waited.
func (m *Metrics) PermitAcquired(wait time.Duration) {
	m.permitsInUse.Inc()
	m.permitsAcquired.Inc()
	m.permitWait.Observe(wait.Seconds())
}

// PermitReleased records a returned permit.
func (m *Metrics) PermitReleased() {
	m.permitsInUse.Dec()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WriteTextfile atomically writes the current metrics to path for the node
// exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Middleware is a chi middleware that records request counts and latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.status)).Inc()
		m.httpRequestDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
