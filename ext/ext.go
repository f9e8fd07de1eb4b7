// Package ext defines the extension system for the worker.
// Extensions are notified of job lifecycle events (claimed, completed,
// retrying, dead-lettered, cancelled) and can react to them with metrics,
// audit records, notifications, etc.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobClaimed is called after a job is marked PROCESSING and before the
// capability runs.
type JobClaimed interface {
	OnJobClaimed(ctx context.Context, j *job.Job, attempt int) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, res *job.Result, elapsed time.Duration) error
}

// JobRetrying is called when a job fails but is pushed back for another
// attempt.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, fe *fault.Error, attempt int, delay time.Duration) error
}

// JobDeadLettered is called after a dead-letter record is written. The
// job may not have parsed, so only the record is passed.
type JobDeadLettered interface {
	OnJobDeadLettered(ctx context.Context, e *dlq.Entry) error
}

// JobCancelled is called when a job ends CANCELLED, before or during
// execution.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
