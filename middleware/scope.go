package middleware

import (
	"context"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/scope"
)

// Scope returns middleware that fills the job's identity (id, request id,
// queue) into the context scope, keeping fields the caller already set.
func Scope() Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		ctx = scope.Merge(ctx, scope.Info{
			JobID:     j.ID,
			RequestID: j.RequestID,
			Queue:     j.Queue,
		})
		return next(ctx)
	}
}
