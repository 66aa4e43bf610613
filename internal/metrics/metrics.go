// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teradrop_http_requests_total",
			Help: "HTTP requests handled, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teradrop_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

var (
	// UploadsTotal counts upload attempts by result
	// (created, rejected, too_large, error).
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teradrop_uploads_total",
			Help: "Upload attempts by result.",
		},
		[]string{"result"},
	)

	// UploadedBytes counts bytes of successfully recorded uploads.
	UploadedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teradrop_upload_bytes_total",
			Help: "Bytes stored by successful uploads.",
		},
	)

	// DownloadsTotal counts retrievals by result
	// (served, not_found, blob_missing, error).
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teradrop_downloads_total",
			Help: "Download attempts by result.",
		},
		[]string{"result"},
	)

	// OrphansReclaimed counts orphaned blobs removed, by mode (inline, queued, worker).
	OrphansReclaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teradrop_orphans_reclaimed_total",
			Help: "Orphaned blobs reclaimed after failed metadata writes.",
		},
		[]string{"mode"},
	)
)

// Middleware records request counts and latency labelled by the chi route
// pattern, so /files/{name} stays a single series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
