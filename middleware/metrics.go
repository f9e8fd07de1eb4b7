package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/cancel"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/scope"
)

// meterName is the instrumentation scope name for worker metrics.
const meterName = "github.com/arpit-jain-mygit/doc-transcribe-worker"

// Metrics returns middleware that records per-execution metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - worker.job.duration (Float64Histogram): execution time in seconds,
//     with attributes: capability, job_type, status ("ok", "error", "cancelled")
//   - worker.job.executions (Int64Counter): total executions,
//     with the same attributes
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the API returns noop instruments.
	duration, _ := meter.Float64Histogram(
		"worker.job.duration",
		metric.WithDescription("Duration of capability execution in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"worker.job.executions",
		metric.WithDescription("Total number of capability executions"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, j *job.Job, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		switch {
		case err != nil && (cancel.Cancelled(ctx) || errors.Is(err, cancel.ErrCancelled)):
			status = "cancelled"
		case err != nil:
			status = "error"
		}

		info, _ := scope.From(ctx)
		attrs := metric.WithAttributes(
			attribute.String("capability", info.Capability),
			attribute.String("job_type", string(j.Type)),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)

		return err
	}
}
