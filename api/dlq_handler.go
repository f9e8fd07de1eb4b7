package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListDLQResponse is one page of a dead-letter queue, newest first.
type ListDLQResponse struct {
	DLQ     string       `json:"dlq"`
	Total   int64        `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Entries []*dlq.Entry `json:"entries"`
}

func (a *API) listDLQ(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dlq")
	if _, ok := a.eng.Targets().ByDLQ(name); !ok {
		a.writeError(w, http.StatusNotFound, "unknown dlq")
		return
	}

	limit, ok := queryInt(r, "limit", defaultListLimit)
	if !ok || limit < 1 || limit > maxListLimit {
		a.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok || offset < 0 {
		a.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	store := a.eng.DLQService().Store()
	entries, err := store.ListDLQ(r.Context(), name, dlq.ListOpts{Limit: limit, Offset: offset})
	if err != nil {
		a.storeError(w, "list dlq", name, err)
		return
	}
	total, err := store.CountDLQ(r.Context(), name)
	if err != nil {
		a.storeError(w, "count dlq", name, err)
		return
	}

	a.writeJSON(w, http.StatusOK, ListDLQResponse{
		DLQ:     name,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Entries: entries,
	})
}

func (a *API) replayDLQ(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dlq")
	if _, ok := a.eng.Targets().ByDLQ(name); !ok {
		a.writeError(w, http.StatusNotFound, "unknown dlq")
		return
	}
	index, err := strconv.ParseInt(chi.URLParam(r, "index"), 10, 64)
	if err != nil || index < 0 {
		a.writeError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}

	rep, err := a.eng.DLQService().Replay(r.Context(), name, index, "")
	switch {
	case errors.Is(err, dlq.ErrNotFound):
		a.writeError(w, http.StatusNotFound, "dlq entry not found")
		return
	case errors.Is(err, dlq.ErrNotReplayable):
		a.writeError(w, http.StatusUnprocessableEntity, "dlq entry payload is not a JSON object")
		return
	case err != nil:
		a.storeError(w, "replay dlq", name, err)
		return
	}

	a.logger.Info("dlq entry replayed",
		slog.String("dlq", name),
		slog.Int64("index", index),
		slog.String("job_id", rep.JobID),
		slog.String("replay_of", rep.ReplayOf),
		slog.String("queue", rep.Queue),
	)
	a.writeJSON(w, http.StatusCreated, rep)
}

func (a *API) storeError(w http.ResponseWriter, op, name string, err error) {
	a.logger.Error("api: "+op+" failed",
		slog.String("dlq", name),
		slog.String("error", fault.Scrub(err.Error())),
	)
	a.writeError(w, http.StatusInternalServerError, "dlq store unavailable")
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
