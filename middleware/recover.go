package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
)

// Recover returns middleware that recovers from panics in the capability.
// A panic becomes a SYSTEM *fault.Error and is logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("capability panicked",
					slog.String("job_id", j.ID),
					slog.String("job_type", string(j.Type)),
					slog.String("panic", fault.Scrub(fmtPanic(r))),
					slog.String("stack", string(debug.Stack())),
				)
				fe := fault.Panic(r)
				fe.JobID = j.ID
				retErr = fe
			}
		}()
		return next(ctx)
	}
}
