// Package scope carries the correlation identity of the job being
// executed (job, request, queue, capability, attempt, worker) through
// context.Context, so logs, spans and metrics downstream of the
// orchestrator share the same fields.
package scope

import (
	"context"
	"log/slog"
)

// Info is the execution identity of one job attempt.
type Info struct {
	JobID      string
	RequestID  string
	Queue      string
	Capability string
	Attempt    int
	WorkerID   string
}

type ctxKey struct{}

// With attaches info to ctx, replacing any previous scope.
func With(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// From returns the scope in ctx.
func From(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(ctxKey{}).(Info)
	return info, ok
}

// Merge fills the empty fields of the scope in ctx from info and returns
// the updated context.
func Merge(ctx context.Context, info Info) context.Context {
	cur, _ := From(ctx)
	if cur.JobID == "" {
		cur.JobID = info.JobID
	}
	if cur.RequestID == "" {
		cur.RequestID = info.RequestID
	}
	if cur.Queue == "" {
		cur.Queue = info.Queue
	}
	if cur.Capability == "" {
		cur.Capability = info.Capability
	}
	if cur.Attempt == 0 {
		cur.Attempt = info.Attempt
	}
	if cur.WorkerID == "" {
		cur.WorkerID = info.WorkerID
	}
	return With(ctx, cur)
}

// Attrs returns the non-empty scope fields as log attributes.
func (i Info) Attrs() []any {
	attrs := make([]any, 0, 6)
	add := func(k, v string) {
		if v != "" {
			attrs = append(attrs, slog.String(k, v))
		}
	}
	add("job_id", i.JobID)
	add("request_id", i.RequestID)
	add("queue", i.Queue)
	add("capability", i.Capability)
	if i.Attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", i.Attempt))
	}
	add("worker_id", i.WorkerID)
	return attrs
}

// Logger returns l annotated with the scope in ctx.
func Logger(ctx context.Context, l *slog.Logger) *slog.Logger {
	info, ok := From(ctx)
	if !ok {
		return l
	}
	return l.With(info.Attrs()...)
}
