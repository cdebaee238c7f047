package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/imagevault/internal/common"
)

// NewRouter serves the same routes as Gateway plus /health and /metrics.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/images", func(r chi.Router) {
		r.Post("/initiate_upload", func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
			if err != nil {
				status, eb := h.fail(r.Context(), "initiate", common.Validation("request body could not be read"))
				writeJSON(w, status, eb)
				return
			}
			status, out := h.initiate(r.Context(), body)
			writeJSON(w, status, out)
		})
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			status, out := h.list(r.Context(), r.URL.Query())
			writeJSON(w, status, out)
		})
		r.Get("/{imageId}", func(w http.ResponseWriter, r *http.Request) {
			status, out := h.get(r.Context(), chi.URLParam(r, "imageId"))
			writeJSON(w, status, out)
		})
		r.Delete("/{imageId}", func(w http.ResponseWriter, r *http.Request) {
			status, out := h.delete(r.Context(), chi.URLParam(r, "imageId"), r.URL.Query())
			writeJSON(w, status, out)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	return r
}
