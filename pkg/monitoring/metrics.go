package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Database metrics
	dbConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"query_type"},
	)

	// Authorization metrics
	authzDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of policy engine decisions",
		},
		[]string{"resource", "operation", "outcome"},
	)

	// Authentication metrics
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"},
	)

	// Audit trail metrics
	auditRecordsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_records_written_total",
			Help: "Total number of audit records written",
		},
		[]string{"table", "action"},
	)

	// Reaction metrics
	notificationsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Total number of notifications published",
		},
		[]string{"topic"},
	)

	noteStubsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "note_stubs_created_total",
			Help: "Total number of clinical note stubs created from completed appointments",
		},
	)

	notesLockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notes_locked_total",
			Help: "Total number of signed notes locked by the sweep",
		},
	)
)

var registerOnce sync.Once

// RegisterMetrics registers every collector with the default registry. Safe to
// call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			dbConnectionsActive,
			dbQueryDuration,
			authzDecisionsTotal,
			authAttemptsTotal,
			auditRecordsWrittenTotal,
			notificationsPublishedTotal,
			noteStubsCreatedTotal,
			notesLockedTotal,
		)
	})
}

// RecordAuthzDecision records a policy engine decision
func RecordAuthzDecision(resource, operation string, allowed bool) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	authzDecisionsTotal.WithLabelValues(resource, operation, outcome).Inc()
}

// RecordAuthAttempt records an authentication attempt
func RecordAuthAttempt(status string) {
	authAttemptsTotal.WithLabelValues(status).Inc()
}

// RecordAuditWrite records an audit record write
func RecordAuditWrite(table, action string) {
	auditRecordsWrittenTotal.WithLabelValues(table, action).Inc()
}

// RecordNotification records a published notification
func RecordNotification(topic string) {
	notificationsPublishedTotal.WithLabelValues(topic).Inc()
}

// RecordNoteStubCreated records a note stub created by appointment completion
func RecordNoteStubCreated() {
	noteStubsCreatedTotal.Inc()
}

// RecordNotesLocked records notes locked by the lock sweep
func RecordNotesLocked(count int) {
	notesLockedTotal.Add(float64(count))
}

// RecordDBConnections records the active connection count
func RecordDBConnections(active int) {
	dbConnectionsActive.Set(float64(active))
}

// RecordDBQuery records database query metrics
func RecordDBQuery(queryType string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware records request count and latency per route
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		statusCode := strconv.Itoa(wrapper.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, statusCode).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
