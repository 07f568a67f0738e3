package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelink_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carelink_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	sweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelink_sweeps_total",
			Help: "Total sweep runs by result",
		},
		[]string{"result"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carelink_sweep_duration_seconds",
			Help:    "End-to-end sweep duration",
			Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	eventsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelink_events_collected_total",
			Help: "Due events collected by type",
		},
		[]string{"type"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelink_notifications_total",
			Help: "Notification attempts by channel and status",
		},
		[]string{"channel", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSweep records one sweep run and its duration
func RecordSweep(result string, duration time.Duration) {
	sweepsTotal.WithLabelValues(result).Inc()
	sweepDuration.Observe(duration.Seconds())
}

// RecordEventCollected records one collected due event
func RecordEventCollected(eventType string) {
	eventsCollected.WithLabelValues(eventType).Inc()
}

// RecordNotification records one delivery attempt outcome
func RecordNotification(channel, status string) {
	notificationsTotal.WithLabelValues(channel, status).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		RecordRequest(r.Method, r.URL.Path, wrapped.status, time.Since(start))
	})
}
