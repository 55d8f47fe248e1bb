package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by path, method and status."},
		[]string{"path", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request latency in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"path", "method"},
	)
	// ActionsTotal counts dispatched API actions by outcome ("success",
	// "validation", "conflict", "unauthorized", "error", ...).
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "api_actions_total", Help: "API actions by action name and outcome."},
		[]string{"action", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, ActionsTotal)
}

// Handler records request counts and latency per route pattern.
func Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPLatency.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
		HTTPRequests.WithLabelValues(path, r.Method, strconv.Itoa(status)).Inc()
	})
}

// Exposer returns the standard Prometheus scrape handler.
func Exposer() http.Handler { return promhttp.Handler() }
