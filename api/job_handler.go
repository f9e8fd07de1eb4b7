package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/status"
)

// CancelResponse acknowledges a cancel request.
type CancelResponse struct {
	JobID           string `json:"job_id"`
	CancelRequested bool   `json:"cancel_requested"`
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	rec, err := a.eng.Status().Store().GetStatus(r.Context(), jobID)
	if errors.Is(err, status.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		a.logger.Error("api: get status failed",
			slog.String("job_id", jobID),
			slog.String("error", fault.Scrub(err.Error())),
		)
		a.writeError(w, http.StatusInternalServerError, "status store unavailable")
		return
	}
	a.writeJSON(w, http.StatusOK, rec)
}

func (a *API) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	err := a.eng.Cancel().Request(r.Context(), jobID)
	if errors.Is(err, status.ErrTransitionBlocked) {
		a.writeError(w, http.StatusConflict, "job already finished")
		return
	}
	if err != nil {
		a.logger.Error("api: cancel request failed",
			slog.String("job_id", jobID),
			slog.String("error", fault.Scrub(err.Error())),
		)
		a.writeError(w, http.StatusInternalServerError, "status store unavailable")
		return
	}

	a.logger.Info("cancel requested", slog.String("job_id", jobID))
	a.writeJSON(w, http.StatusAccepted, CancelResponse{JobID: jobID, CancelRequested: true})
}
