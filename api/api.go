// Package api is the worker's admin HTTP surface: liveness, readiness,
// job status reads, cancel requests, and DLQ inspection and replay.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/engine"
)

// API wires the admin handlers to an Engine.
type API struct {
	eng    *engine.Engine
	logger *slog.Logger
}

// New creates an API from a worker Engine.
func New(eng *engine.Engine, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{eng: eng, logger: logger}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/jobs/{jobID}", a.getJob)
		r.Post("/jobs/{jobID}/cancel", a.cancelJob)

		r.Get("/dlq/{dlq}", a.listDLQ)
		r.Post("/dlq/{dlq}/replay/{index}", a.replayDLQ)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("api: encode response failed", slog.String("error", err.Error()))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, errorResponse{Error: msg})
}
