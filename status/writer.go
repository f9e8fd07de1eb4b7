package status

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
)

// DefaultTTL is how long a record lives after its last write.
const DefaultTTL = 24 * time.Hour

// Writer applies lifecycle writes for the orchestrator.
type Writer struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithTTL sets the record TTL.
func WithTTL(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.ttl = d
		}
	}
}

// WithLogger sets the logger for blocked transitions.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// NewWriter creates a Writer over s.
func NewWriter(s Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store:  s,
		ttl:    DefaultTTL,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Store returns the underlying store.
func (w *Writer) Store() Store { return w.store }

// Write stamps updated_at and applies p. Blocked transitions are logged
// and returned as ErrTransitionBlocked.
func (w *Writer) Write(ctx context.Context, jobID string, p Patch) error {
	p.UpdatedAt = w.now()
	prev, err := w.store.ApplyStatus(ctx, jobID, p, w.ttl)
	if errors.Is(err, ErrTransitionBlocked) {
		w.logger.Warn("status transition blocked",
			slog.String("job_id", jobID),
			slog.String("current", string(prev)),
			slog.String("target", string(p.Status)),
			slog.String("request_id", p.RequestID),
		)
	}
	return err
}

// Claimed marks j PROCESSING for the given attempt.
func (w *Writer) Claimed(ctx context.Context, j *job.Job, attempts int, workerID string) error {
	return w.Write(ctx, j.ID, Patch{
		Status:    Processing,
		Stage:     "processing",
		Progress:  Ptr(0),
		JobID:     j.ID,
		JobType:   string(j.Type),
		InputType: string(j.InputType),
		RequestID: j.RequestID,
		Attempts:  attempts,
		Queue:     j.Queue,
		WorkerID:  workerID,
	})
}

// Completed marks the job COMPLETED with its outputs.
func (w *Writer) Completed(ctx context.Context, j *job.Job, res *job.Result, elapsed time.Duration) error {
	p := Patch{
		Status:      Completed,
		Stage:       "completed",
		Progress:    Ptr(100),
		DurationSec: Ptr(seconds(elapsed)),
		RequestID:   j.RequestID,
		Error:       Ptr(""),
		ErrorCode:   Ptr(""),
	}
	if res != nil {
		if res.OutputPath != "" {
			p.OutputPath = res.OutputPath
			p.OutputFilename = path.Base(res.OutputPath)
		}
		if j.Type == job.TypeOCR {
			p.TotalPages = Ptr(res.Pages)
		}
	}
	return w.Write(ctx, j.ID, p)
}

// Failed marks the job FAILED with the failure's user-safe message.
func (w *Writer) Failed(ctx context.Context, jobID, requestID string, fe *fault.Error, elapsed time.Duration) error {
	return w.Write(ctx, jobID, Patch{
		Status:      Failed,
		Stage:       "failed",
		DurationSec: Ptr(seconds(elapsed)),
		RequestID:   requestID,
		Error:       Ptr(fe.Message),
		ErrorCode:   Ptr(fe.Code),
	})
}

// Requeued records that the job went back onto its queue under stage and
// clears the previous attempt's error. The status is left as is: a
// PROCESSING record stays PROCESSING until the next claim.
func (w *Writer) Requeued(ctx context.Context, j *job.Job, stage string) error {
	return w.Write(ctx, j.ID, Patch{
		Stage:     stage,
		RequestID: j.RequestID,
		Error:     Ptr(""),
	})
}

// Cancelled marks the job CANCELLED.
func (w *Writer) Cancelled(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return w.Write(ctx, j.ID, Patch{
		Status:      Cancelled,
		Stage:       "cancelled",
		DurationSec: Ptr(seconds(elapsed)),
		RequestID:   j.RequestID,
	})
}

// Progress records stage and percentage while the job runs. It is
// rejected once the record is terminal.
func (w *Writer) Progress(ctx context.Context, jobID, stage string, pct int) error {
	pct = min(max(pct, 0), 100)
	return w.Write(ctx, jobID, Patch{Stage: stage, Progress: Ptr(pct)})
}

func seconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return d.Seconds()
}
