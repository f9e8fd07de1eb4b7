package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/scope"
)

// tracerName is the instrumentation scope name for worker tracing.
const tracerName = "github.com/arpit-jain-mygit/doc-transcribe-worker"

// Tracing returns middleware that wraps execution in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is used
// and this middleware becomes a pass-through with zero overhead.
//
// Span attributes include: worker.job.id, worker.job.type,
// worker.input.type, worker.queue, worker.capability, worker.attempt.
// On error the span status is set to codes.Error with the failure code.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		info, _ := scope.From(ctx)
		ctx, span := tracer.Start(ctx, "worker.job.execute",
			trace.WithAttributes(
				attribute.String("worker.job.id", j.ID),
				attribute.String("worker.job.type", string(j.Type)),
				attribute.String("worker.input.type", string(j.InputType)),
				attribute.String("worker.queue", j.Queue),
				attribute.String("worker.capability", info.Capability),
				attribute.Int("worker.attempt", info.Attempt),
				attribute.String("worker.request_id", j.RequestID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			fe := fault.From(err)
			span.RecordError(fe)
			span.SetAttributes(
				attribute.String("worker.error.code", fe.Code),
				attribute.String("worker.error.type", string(fe.Type)),
			)
			span.SetStatus(codes.Error, fe.Code)
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
