package observability

import (
	"database/sql"
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
	HTTPResponseSize    *prometheus.HistogramVec

	// Engine metrics
	AuthzDenialsTotal  *prometheus.CounterVec
	QuotaDenialsTotal  *prometheus.CounterVec
	RateLimitHitsTotal *prometheus.CounterVec

	// Lifecycle metrics
	SignupsTotal  prometheus.Counter
	LoginsTotal   prometheus.Counter
	InvitesTotal  *prometheus.CounterVec
	UpgradesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Audit metrics
	AuditEventsTotal  *prometheus.CounterVec
	AuditEventsFailed prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atrium_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "atrium_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "atrium_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Engine metrics
		AuthzDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atrium_authz_denials_total",
				Help: "Total number of authorization denials",
			},
			[]string{"action", "resource"},
		),
		QuotaDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atrium_quota_denials_total",
				Help: "Total number of quota denials",
			},
			[]string{"resource"},
		),
		RateLimitHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atrium_ratelimit_hits_total",
				Help: "Total number of rate limited requests",
			},
			[]string{"scope"},
		),

		// Lifecycle metrics
		SignupsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "atrium_signups_total",
				Help: "Total number of organization signups",
			},
		),
		LoginsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "atrium_logins_total",
				Help: "Total number of successful logins",
			},
		),
		InvitesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atrium_invites_total",
				Help: "Total number of user invitations",
			},
			[]string{"role"},
		),
		UpgradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atrium_subscription_upgrades_total",
				Help: "Total number of subscription upgrades",
			},
			[]string{"plan"},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "atrium_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "atrium_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		// Audit metrics
		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atrium_audit_events_total",
				Help: "Total number of audit events recorded",
			},
			[]string{"event_type"},
		),
		AuditEventsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "atrium_audit_events_failed_total",
				Help: "Total number of audit events that failed to persist",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.AuthzDenialsTotal,
		m.QuotaDenialsTotal,
		m.RateLimitHitsTotal,
		m.SignupsTotal,
		m.LoginsTotal,
		m.InvitesTotal,
		m.UpgradesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.AuditEventsTotal,
		m.AuditEventsFailed,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// CollectDBStats copies connection pool stats into the database gauges.
func (m *Metrics) CollectDBStats(stats sql.DBStats) {
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
