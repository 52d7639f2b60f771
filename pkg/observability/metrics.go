package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access resolution metrics
	AccessResolutionsTotal   *prometheus.CounterVec
	AccessResolutionDuration *prometheus.HistogramVec
	AccessDeniedTotal        *prometheus.CounterVec

	// Team-role scope grants (granted via a team role rather than org scopes)
	TeamScopePassTotal    *prometheus.CounterVec
	ProjectScopePassTotal *prometheus.CounterVec

	// Membership snapshot metrics
	SnapshotLoadsTotal       *prometheus.CounterVec
	SnapshotCacheHitsTotal   *prometheus.CounterVec
	SnapshotCacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warden_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		AccessResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_access_resolutions_total",
				Help: "Total number of access evaluators constructed, by variant",
			},
			[]string{"variant"},
		),
		AccessResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warden_access_resolution_duration_seconds",
				Help:    "Time spent constructing access evaluators",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"variant"},
		),
		AccessDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_access_denied_total",
				Help: "Total number of denied scope or permission checks",
			},
			[]string{"check"},
		),

		TeamScopePassTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_team_roles_pass_by_team_scope_total",
				Help: "Scope checks granted through a team role on the team itself",
			},
			[]string{"team_role", "scope"},
		),
		ProjectScopePassTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_team_roles_pass_by_project_scope_total",
				Help: "Scope checks granted through a team role on one of the project's teams",
			},
			[]string{"team_role", "scope"},
		),

		SnapshotLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_membership_snapshot_loads_total",
				Help: "Membership snapshot loads, by source and status",
			},
			[]string{"source", "status"},
		),
		SnapshotCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_membership_snapshot_cache_hits_total",
				Help: "Membership snapshot cache hits, by tier",
			},
			[]string{"tier"},
		),
		SnapshotCacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_membership_snapshot_cache_misses_total",
				Help: "Membership snapshot cache misses",
			},
			[]string{"tier"},
		),

		DBConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warden_db_connections_active",
			Help: "Number of active database connections",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warden_db_connections_idle",
			Help: "Number of idle database connections",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AccessResolutionsTotal,
		m.AccessResolutionDuration,
		m.AccessDeniedTotal,
		m.TeamScopePassTotal,
		m.ProjectScopePassTotal,
		m.SnapshotLoadsTotal,
		m.SnapshotCacheHitsTotal,
		m.SnapshotCacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request metrics
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Seconds()
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
