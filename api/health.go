package api

import (
	"context"
	"net/http"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/queue"
)

// Readiness states.
const (
	StatusReady    = "ready"
	StatusDegraded = "degraded"
)

// Probe is what a readiness check needs from the store.
type Probe interface {
	Ping(ctx context.Context) error
	Len(ctx context.Context, q string) (int64, error)
}

// QueueDepth is the backlog of one target.
type QueueDepth struct {
	Label    string `json:"label"`
	Queue    string `json:"queue"`
	Depth    int64  `json:"depth"`
	DLQ      string `json:"dlq"`
	DLQDepth int64  `json:"dlq_depth"`
}

// Readiness is the body of /readyz and of the check command.
type Readiness struct {
	Status string       `json:"status"`
	Error  string       `json:"error,omitempty"`
	Queues []QueueDepth `json:"queues,omitempty"`
}

// OK reports whether the worker can serve jobs.
func (r Readiness) OK() bool { return r.Status == StatusReady }

// Check pings the store and reads the depth of every target queue and DLQ.
// Any failure yields a degraded report carrying the scrubbed error.
func Check(ctx context.Context, p Probe, ts queue.Targets) Readiness {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	degraded := func(err error) Readiness {
		return Readiness{Status: StatusDegraded, Error: fault.Scrub(err.Error())}
	}
	if err := p.Ping(ctx); err != nil {
		return degraded(err)
	}

	depths := make([]QueueDepth, 0, len(ts))
	for _, t := range ts {
		n, err := p.Len(ctx, t.Queue)
		if err != nil {
			return degraded(err)
		}
		m, err := p.Len(ctx, t.DLQ)
		if err != nil {
			return degraded(err)
		}
		depths = append(depths, QueueDepth{Label: t.Label, Queue: t.Queue, Depth: n, DLQ: t.DLQ, DLQDepth: m})
	}
	return Readiness{Status: StatusReady, Queues: depths}
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) readyz(w http.ResponseWriter, r *http.Request) {
	rd := Check(r.Context(), a.eng.Store(), a.eng.Targets())
	if !rd.OK() {
		a.writeJSON(w, http.StatusServiceUnavailable, rd)
		return
	}
	a.writeJSON(w, http.StatusOK, rd)
}
