package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ext"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension       = (*Extension)(nil)
	_ ext.JobClaimed      = (*Extension)(nil)
	_ ext.JobCompleted    = (*Extension)(nil)
	_ ext.JobRetrying     = (*Extension)(nil)
	_ ext.JobDeadLettered = (*Extension)(nil)
	_ ext.JobCancelled    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audited lifecycle transition.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder writes every event to logger, at warn for warnings and error
// for critical events.
func LogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		switch evt.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityCritical:
			level = slog.LevelError
		}
		attrs := []slog.Attr{
			slog.String("action", evt.Action),
			slog.String("resource", evt.Resource),
			slog.String("resource_id", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
		}
		if evt.Reason != "" {
			attrs = append(attrs, slog.String("reason", evt.Reason))
		}
		for k, v := range evt.Metadata {
			attrs = append(attrs, slog.Any(k, v))
		}
		logger.LogAttrs(ctx, level, "audit", attrs...)
		return nil
	})
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges worker lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobClaimed implements ext.JobClaimed.
func (e *Extension) OnJobClaimed(ctx context.Context, j *job.Job, attempt int) error {
	return e.record(ctx, ActionJobClaimed, SeverityInfo, OutcomeSuccess, j.ID, "",
		jobMeta(j, "attempt", attempt)...,
	)
}

// OnJobCompleted implements ext.JobCompleted.
func (e *Extension) OnJobCompleted(ctx context.Context, j *job.Job, res *job.Result, elapsed time.Duration) error {
	kv := []any{"elapsed_ms", elapsed.Milliseconds()}
	if res != nil && res.Pages > 0 {
		kv = append(kv, "pages", res.Pages)
	}
	return e.record(ctx, ActionJobCompleted, SeverityInfo, OutcomeSuccess, j.ID, "",
		jobMeta(j, kv...)...,
	)
}

// OnJobRetrying implements ext.JobRetrying.
func (e *Extension) OnJobRetrying(ctx context.Context, j *job.Job, fe *fault.Error, attempt int, delay time.Duration) error {
	return e.record(ctx, ActionJobRetrying, SeverityWarning, OutcomeFailure, j.ID, fe.Message,
		jobMeta(j,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error_code", fe.Code,
			"error_type", string(fe.Type),
		)...,
	)
}

// OnJobDeadLettered implements ext.JobDeadLettered.
func (e *Extension) OnJobDeadLettered(ctx context.Context, d *dlq.Entry) error {
	return e.record(ctx, ActionJobDeadLettered, SeverityCritical, OutcomeFailure, d.JobID, d.Error,
		"job_type", d.JobType,
		"input_type", d.InputType,
		"queue", d.QueueName,
		"dlq", d.DLQName,
		"request_id", d.RequestID,
		"attempts", d.Attempts,
		"max_attempts", d.MaxAttempts,
		"failed_stage", d.FailedStage,
		"error_code", d.ErrorCode,
		"error_type", string(d.ErrorType),
	)
}

// OnJobCancelled implements ext.JobCancelled.
func (e *Extension) OnJobCancelled(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return e.record(ctx, ActionJobCancelled, SeverityInfo, OutcomeSuccess, j.ID, "",
		jobMeta(j, "elapsed_ms", elapsed.Milliseconds())...,
	)
}

// ── Internal helpers ────────────────────────────────

func jobMeta(j *job.Job, kv ...any) []any {
	return append([]any{
		"job_type", string(j.Type),
		"input_type", string(j.InputType),
		"queue", j.Queue,
		"request_id", j.RequestID,
	}, kv...)
}

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata;
// empty string values are dropped.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resourceID, reason string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		if s, isStr := kvPairs[i+1].(string); isStr && s == "" {
			continue
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   ResourceJob,
		Category:   CategoryJob,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
