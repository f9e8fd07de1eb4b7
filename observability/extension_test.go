package observability_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ext"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/observability"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/scope"
)

func newTestExtension() (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

func newTestJob() *job.Job {
	return &job.Job{
		ID:        "ocr-001",
		Type:      job.TypeOCR,
		InputType: job.InputPDF,
		Queue:     "doc_jobs",
	}
}

func testContext() context.Context {
	return scope.With(context.Background(), scope.Info{Capability: "ocr"})
}

// counterValue sums every data point of the named Int64 counter.
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestMetricsExtension_Name(t *testing.T) {
	e, _ := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_JobClaimed(t *testing.T) {
	e, reader := newTestExtension()
	if err := e.OnJobClaimed(testContext(), newTestJob(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := counterValue(t, reader, "worker.job.claimed"); got != 1 {
		t.Errorf("worker.job.claimed: want 1, got %d", got)
	}
}

func TestMetricsExtension_JobCompletedAttributes(t *testing.T) {
	e, reader := newTestExtension()
	if err := e.OnJobCompleted(testContext(), newTestJob(), &job.Result{}, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "worker.job.completed" {
				continue
			}
			dp := m.Data.(metricdata.Sum[int64]).DataPoints[0]
			if v, ok := dp.Attributes.Value("capability"); !ok || v.AsString() != "ocr" {
				t.Errorf("capability attribute = %v", v.AsString())
			}
			if v, ok := dp.Attributes.Value("job_type"); !ok || v.AsString() != "OCR" {
				t.Errorf("job_type attribute = %v", v.AsString())
			}
			found = true
		}
	}
	if !found {
		t.Fatal("worker.job.completed metric not found")
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	e, reader := newTestExtension()

	reg := ext.NewRegistry(slog.Default())
	reg.Register(e)

	ctx := testContext()
	j := newTestJob()
	fe := fault.New(fault.System, fault.CodeInfraRedis, "")

	reg.EmitJobClaimed(ctx, j, 1)
	reg.EmitJobCompleted(ctx, j, &job.Result{}, 50*time.Millisecond)
	reg.EmitJobRetrying(ctx, j, fe, 1, time.Second)
	reg.EmitJobDeadLettered(ctx, &dlq.Entry{DLQName: "doc_jobs_dlq", ErrorType: fault.System, ErrorCode: fe.Code})
	reg.EmitJobCancelled(ctx, j, 0)

	for _, name := range []string{
		"worker.job.claimed",
		"worker.job.completed",
		"worker.job.retried",
		"worker.job.dead_lettered",
		"worker.job.cancelled",
	} {
		if got := counterValue(t, reader, name); got != 1 {
			t.Errorf("%s: want 1, got %d", name, got)
		}
	}
}

func TestMetricsExtension_DefaultNoopSafe(t *testing.T) {
	e := observability.NewMetricsExtension()
	if err := e.OnJobClaimed(context.Background(), newTestJob(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
