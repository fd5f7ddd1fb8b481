package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glowlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "glowlink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	commandsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glowlink",
			Subsystem: "ble",
			Name:      "commands_delivered_total",
			Help:      "Commands delivered to devices, by outcome",
		},
		[]string{"kind", "outcome"},
	)

	tilesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "glowlink",
			Subsystem: "ble",
			Name:      "image_tiles_delivered_total",
			Help:      "Image tiles delivered to devices",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, commandsDelivered, tilesDelivered)
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus. Routes are fixed
// patterns, so the raw path is a safe label.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r)

		status := strconv.Itoa(sr.status)
		httpRequestsTotal.WithLabelValues(r.URL.Path, r.Method, status).Inc()
		httpRequestDuration.WithLabelValues(r.URL.Path, r.Method, status).Observe(time.Since(start).Seconds())
	})
}

func recordDelivery(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	commandsDelivered.WithLabelValues(kind, outcome).Inc()
}
