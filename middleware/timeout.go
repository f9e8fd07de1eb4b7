package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
)

// Timeout returns middleware that enforces an execution deadline on every
// capability call. A zero d disables it. When the deadline is exceeded the
// context is cancelled and the capability should return
// context.DeadlineExceeded.
func Timeout(d time.Duration, logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}
		logger.Debug("job timeout set",
			slog.String("job_id", j.ID),
			slog.Duration("timeout", d),
		)
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
