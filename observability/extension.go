package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ext"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/scope"
)

// meterName is the instrumentation scope name for lifecycle metrics.
const meterName = "github.com/arpit-jain-mygit/doc-transcribe-worker/observability"

// Compile-time interface checks.
var (
	_ ext.Extension       = (*MetricsExtension)(nil)
	_ ext.JobClaimed      = (*MetricsExtension)(nil)
	_ ext.JobCompleted    = (*MetricsExtension)(nil)
	_ ext.JobRetrying     = (*MetricsExtension)(nil)
	_ ext.JobDeadLettered = (*MetricsExtension)(nil)
	_ ext.JobCancelled    = (*MetricsExtension)(nil)
)

// MetricsExtension records lifecycle counters through an OTel meter.
// Register it as a worker extension to track claim rates, completions,
// retries, dead letters and cancellations per capability.
type MetricsExtension struct {
	JobClaimed      metric.Int64Counter
	JobCompleted    metric.Int64Counter
	JobRetried      metric.Int64Counter
	JobDeadLettered metric.Int64Counter
	JobCancelled    metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension on the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter. Instrument creation errors yield noop counters.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("{job}"))
		return c
	}
	return &MetricsExtension{
		JobClaimed:      counter("worker.job.claimed", "Jobs claimed for processing"),
		JobCompleted:    counter("worker.job.completed", "Jobs completed successfully"),
		JobRetried:      counter("worker.job.retried", "Failed jobs pushed back for retry"),
		JobDeadLettered: counter("worker.job.dead_lettered", "Jobs written to a dead-letter queue"),
		JobCancelled:    counter("worker.job.cancelled", "Jobs ended by cancellation"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobClaimed implements ext.JobClaimed.
func (m *MetricsExtension) OnJobClaimed(ctx context.Context, j *job.Job, _ int) error {
	m.JobClaimed.Add(ctx, 1, jobAttrs(ctx, j))
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, j *job.Job, _ *job.Result, _ time.Duration) error {
	m.JobCompleted.Add(ctx, 1, jobAttrs(ctx, j))
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(ctx context.Context, j *job.Job, fe *fault.Error, _ int, _ time.Duration) error {
	m.JobRetried.Add(ctx, 1, metric.WithAttributes(
		attribute.String("capability", capabilityOf(ctx)),
		attribute.String("job_type", string(j.Type)),
		attribute.String("error_code", fe.Code),
	))
	return nil
}

// OnJobDeadLettered implements ext.JobDeadLettered.
func (m *MetricsExtension) OnJobDeadLettered(ctx context.Context, e *dlq.Entry) error {
	m.JobDeadLettered.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dlq", e.DLQName),
		attribute.String("error_type", string(e.ErrorType)),
		attribute.String("error_code", e.ErrorCode),
	))
	return nil
}

// OnJobCancelled implements ext.JobCancelled.
func (m *MetricsExtension) OnJobCancelled(ctx context.Context, j *job.Job, _ time.Duration) error {
	m.JobCancelled.Add(ctx, 1, jobAttrs(ctx, j))
	return nil
}

func jobAttrs(ctx context.Context, j *job.Job) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("capability", capabilityOf(ctx)),
		attribute.String("job_type", string(j.Type)),
	)
}

func capabilityOf(ctx context.Context) string {
	info, _ := scope.From(ctx)
	return info.Capability
}
