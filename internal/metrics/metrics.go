package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// AuthEventsTotal counts auth flow outcomes by event (register, login, refresh, logout, logout_all) and result.
	AuthEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkdrop_auth_events_total",
			Help: "Auth flow outcomes by event and result",
		},
		[]string{"event", "result"},
	)

	// PostEventsTotal counts successful post lifecycle actions (create, update, publish, unpublish, delete).
	PostEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkdrop_post_events_total",
			Help: "Post lifecycle actions by action",
		},
		[]string{"action"},
	)

	// SessionsPurgedTotal counts expired refresh tokens removed by the janitor.
	SessionsPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inkdrop_sessions_purged_total",
			Help: "Expired refresh tokens deleted by the purge job",
		},
	)
)

var (
	uuidPathSegment = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`)
	initOnce        sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, AuthEventsTotal, PostEventsTotal, SessionsPurgedTotal)
	})
}

// NormalizePath reduces cardinality by replacing UUID path segments with {id}.
// E.g. /api/posts/3f2b.../publish -> /api/posts/{id}/publish.
func NormalizePath(path string) string {
	return uuidPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// IncAuthEvent records one auth flow outcome. result is "ok" or "fail".
func IncAuthEvent(event, result string) {
	AuthEventsTotal.WithLabelValues(event, result).Inc()
}

// IncPostEvent records one successful post lifecycle action.
func IncPostEvent(action string) {
	PostEventsTotal.WithLabelValues(action).Inc()
}

// AddSessionsPurged adds n to the purged sessions counter.
func AddSessionsPurged(n int64) {
	if n > 0 {
		SessionsPurgedTotal.Add(float64(n))
	}
}
