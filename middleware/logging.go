package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/scope"
)

// Logging returns middleware that logs capability start and outcome. Only
// the failure code and user message are logged, never raw error text.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		l := scope.Logger(ctx, logger)
		l.Info("job started",
			slog.String("job_type", string(j.Type)),
			slog.String("input_type", string(j.InputType)),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			fe := fault.From(err)
			l.Error("job failed",
				slog.Duration("elapsed", elapsed),
				slog.String("error_code", fe.Code),
				slog.String("error_type", string(fe.Type)),
				slog.String("error", fe.Message),
			)
		} else {
			l.Info("job completed",
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}

func fmtPanic(v any) string {
	return fmt.Sprint(v)
}
