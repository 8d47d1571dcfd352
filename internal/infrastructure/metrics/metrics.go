// Package metrics exposes Prometheus metrics for compiles, directives,
// pushes and HTTP requests.
//
// Collectors are registered on a private registry so tests can create as
// many Collectors as they like.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "graylogic_facility"

// Collector holds every metric the service reports.
type Collector struct {
	registry *prometheus.Registry

	compilesTotal   *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
	entryErrors     *prometheus.CounterVec
	directivesTotal *prometheus.CounterVec
	pushesTotal     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates a Collector with its own registry, including Go runtime
// and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		compilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compiles_total",
			Help:      "Manifest compilations by site and outcome.",
		}, []string{"site_id", "outcome"}),
		compileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Manifest compilation duration by site.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"site_id"}),
		entryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_errors_total",
			Help:      "Per-entry failures recorded in compiled manifests.",
		}, []string{"site_id"}),
		directivesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directives_total",
			Help:      "Thermostat directives by action.",
		}, []string{"action"}),
		pushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_total",
			Help:      "Manifest push outcomes by status.",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.compilesTotal,
		c.compileDuration,
		c.entryErrors,
		c.directivesTotal,
		c.pushesTotal,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

// ObserveCompile records one compilation.
func (c *Collector) ObserveCompile(siteID string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.compilesTotal.WithLabelValues(siteID, outcome).Inc()
	c.compileDuration.WithLabelValues(siteID).Observe(duration.Seconds())
}

// ObserveEntryErrors adds a manifest's per-entry error count.
func (c *Collector) ObserveEntryErrors(siteID string, n int) {
	if n > 0 {
		c.entryErrors.WithLabelValues(siteID).Add(float64(n))
	}
}

// ObserveDirective counts one thermostat directive.
func (c *Collector) ObserveDirective(action string) {
	c.directivesTotal.WithLabelValues(action).Inc()
}

// ObservePush counts one push outcome.
func (c *Collector) ObservePush(status string) {
	c.pushesTotal.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware records request counts and durations. routeOf maps a
// request to a low-cardinality route label, typically the router pattern.
func (c *Collector) Middleware(routeOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r)

			route := routeOf(r)
			if route == "" {
				route = "unmatched"
			}
			c.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			c.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
