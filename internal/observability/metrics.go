package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the authorization service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	decisionsTotal  *prometheus.CounterVec
	denialsEmitted  prometheus.Counter
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// NewMetrics initializes the registry and the base metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "palisade_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "palisade_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "palisade_authz_decisions_total",
		Help: "Gateway decisions by verdict (allow, allow_bypass, deny).",
	}, []string{"verdict"})
	denials := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "palisade_authz_denials_emitted_total",
		Help: "Denial records handed to the audit sink.",
	})
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "palisade_authz_cache_hits_total",
		Help: "Decision cache hits per store.",
	}, []string{"store"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "palisade_authz_cache_misses_total",
		Help: "Decision cache misses per store.",
	}, []string{"store"})
	registry.MustRegister(requests, duration, decisions, denials, hits, misses)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		decisionsTotal:  decisions,
		denialsEmitted:  denials,
		cacheHits:       hits,
		cacheMisses:     misses,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// DecisionRecorded implements the gateway's decision recorder.
func (m *Metrics) DecisionRecorded(verdict string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(verdict).Inc()
	if verdict == "deny" {
		m.denialsEmitted.Inc()
	}
}

// CacheHit implements the decision cache recorder.
func (m *Metrics) CacheHit(store string) {
	if m != nil {
		m.cacheHits.WithLabelValues(store).Inc()
	}
}

// CacheMiss implements the decision cache recorder.
func (m *Metrics) CacheMiss(store string) {
	if m != nil {
		m.cacheMisses.WithLabelValues(store).Inc()
	}
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
