// Package api exposes the HTTP surface: upload, listing, download, health
// and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dharsanguruparan/teradrop/internal/api/middleware"
	"github.com/dharsanguruparan/teradrop/internal/metrics"
	"github.com/dharsanguruparan/teradrop/internal/service"
)

// Handler serves the HTTP endpoints on top of a service.Service.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

// New constructs a Handler.
func New(svc *service.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes builds the router with CORS, request logging and metrics applied to
// every route.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(metrics.Middleware)

	r.Post("/upload", h.handleUpload)
	r.Get("/files", h.handleList)
	r.Get("/files/{name}", h.handleDownload)
	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "Method not allowed.")
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.svc.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := h.parseUpload(w, r)
	defer cleanup()
	if err != nil {
		h.uploadFailed(w, err)
		return
	}
	rec, err := h.svc.Upload(r.Context(), in)
	if err != nil {
		h.uploadFailed(w, err)
		return
	}
	metrics.UploadsTotal.WithLabelValues("created").Inc()
	respondJSON(w, http.StatusCreated, rec)
}

func (h *Handler) uploadFailed(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch {
	case status == http.StatusRequestEntityTooLarge:
		metrics.UploadsTotal.WithLabelValues("too_large").Inc()
	case status < 500:
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
	default:
		metrics.UploadsTotal.WithLabelValues("error").Inc()
	}
	writeServiceError(w, err)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Malformed file name.")
		return
	}
	dl, err := h.svc.Open(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			metrics.DownloadsTotal.WithLabelValues("not_found").Inc()
		case errors.Is(err, service.ErrBlobMissing):
			metrics.DownloadsTotal.WithLabelValues("blob_missing").Inc()
		default:
			metrics.DownloadsTotal.WithLabelValues("error").Inc()
		}
		writeServiceError(w, err)
		return
	}
	defer dl.Blob.Close()
	metrics.DownloadsTotal.WithLabelValues("served").Inc()

	w.Header().Set("Content-Type", dl.Record.Mimetype)
	w.Header().Set("Content-Disposition", attachment(dl.Record.OriginalName))
	http.ServeContent(w, r, dl.Record.OriginalName, dl.Blob.ModTime, dl.Blob)
}

// attachment formats a Content-Disposition value suggesting filename.
// Non-ASCII names are emitted with RFC 2231 encoding.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// pathParam returns the decoded chi URL parameter. chi matches against
// RawPath when the request carried one, leaving the value escaped.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", slog.String("error", err.Error()))
	}
}
