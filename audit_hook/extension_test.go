package audithook_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	ah "github.com/arpit-jain-mygit/doc-transcribe-worker/audit_hook"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ext"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
)

// ── Mock recorder ────────────────────────────────────

// mockRecorder captures audit events for verification.
type mockRecorder struct {
	mu     sync.Mutex
	events []*ah.AuditEvent
}

func (m *mockRecorder) Record(_ context.Context, evt *ah.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) last() *ah.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// ── Test helpers ─────────────────────────────────────

func newTestJob() *job.Job {
	return &job.Job{
		ID:        "ocr-001",
		Type:      job.TypeOCR,
		InputType: job.InputPDF,
		RequestID: "req-77",
		Queue:     "doc_jobs",
	}
}

// ── Tests ────────────────────────────────────────────

func TestExtension_Name(t *testing.T) {
	e := ah.New(&mockRecorder{})
	if e.Name() != "audit-hook" {
		t.Errorf("expected name %q, got %q", "audit-hook", e.Name())
	}
}

// ── Job lifecycle tests ──────────────────────────────

func TestExtension_JobClaimed(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	if err := e.OnJobClaimed(context.Background(), newTestJob(), 2); err != nil {
		t.Fatalf("OnJobClaimed: %v", err)
	}

	evt := rec.last()
	if evt == nil {
		t.Fatal("no event recorded")
	}
	if evt.Action != ah.ActionJobClaimed {
		t.Errorf("Action: want %q, got %q", ah.ActionJobClaimed, evt.Action)
	}
	if evt.Resource != ah.ResourceJob || evt.Category != ah.CategoryJob {
		t.Errorf("Resource/Category: got %q/%q", evt.Resource, evt.Category)
	}
	if evt.ResourceID != "ocr-001" {
		t.Errorf("ResourceID: want %q, got %q", "ocr-001", evt.ResourceID)
	}
	if evt.Severity != ah.SeverityInfo || evt.Outcome != ah.OutcomeSuccess {
		t.Errorf("Severity/Outcome: got %q/%q", evt.Severity, evt.Outcome)
	}
	if evt.Metadata["attempt"] != 2 {
		t.Errorf("Metadata[attempt]: want 2, got %v", evt.Metadata["attempt"])
	}
	if evt.Metadata["job_type"] != "OCR" || evt.Metadata["queue"] != "doc_jobs" || evt.Metadata["request_id"] != "req-77" {
		t.Errorf("Metadata: got %v", evt.Metadata)
	}
}

func TestExtension_JobCompleted(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	elapsed := 150 * time.Millisecond

	if err := e.OnJobCompleted(context.Background(), newTestJob(), &job.Result{Pages: 4}, elapsed); err != nil {
		t.Fatalf("OnJobCompleted: %v", err)
	}

	evt := rec.last()
	if evt.Action != ah.ActionJobCompleted {
		t.Errorf("Action: want %q, got %q", ah.ActionJobCompleted, evt.Action)
	}
	if evt.Metadata["elapsed_ms"] != elapsed.Milliseconds() {
		t.Errorf("Metadata[elapsed_ms]: want %d, got %v", elapsed.Milliseconds(), evt.Metadata["elapsed_ms"])
	}
	if evt.Metadata["pages"] != 4 {
		t.Errorf("Metadata[pages]: want 4, got %v", evt.Metadata["pages"])
	}
}

func TestExtension_JobRetrying(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	fe := fault.New(fault.IO, fault.CodeInputNotFound, "Input file was not found.")

	if err := e.OnJobRetrying(context.Background(), newTestJob(), fe, 1, 2*time.Second); err != nil {
		t.Fatalf("OnJobRetrying: %v", err)
	}

	evt := rec.last()
	if evt.Action != ah.ActionJobRetrying {
		t.Errorf("Action: want %q, got %q", ah.ActionJobRetrying, evt.Action)
	}
	if evt.Severity != ah.SeverityWarning || evt.Outcome != ah.OutcomeFailure {
		t.Errorf("Severity/Outcome: got %q/%q", evt.Severity, evt.Outcome)
	}
	if evt.Reason != "Input file was not found." {
		t.Errorf("Reason: got %q", evt.Reason)
	}
	if evt.Metadata["error_code"] != fault.CodeInputNotFound || evt.Metadata["error_type"] != "IO" {
		t.Errorf("Metadata: got %v", evt.Metadata)
	}
	if evt.Metadata["delay_ms"] != int64(2000) {
		t.Errorf("Metadata[delay_ms]: want 2000, got %v", evt.Metadata["delay_ms"])
	}
}

func TestExtension_JobDeadLettered(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	entry := &dlq.Entry{
		JobID:       "ocr-009",
		JobType:     "OCR",
		Error:       "Input file was not found.",
		ErrorCode:   fault.CodeInputNotFound,
		ErrorType:   fault.IO,
		Attempts:    3,
		MaxAttempts: 3,
		QueueName:   "doc_jobs",
		DLQName:     "doc_jobs_dlq",
	}
	if err := e.OnJobDeadLettered(context.Background(), entry); err != nil {
		t.Fatalf("OnJobDeadLettered: %v", err)
	}

	evt := rec.last()
	if evt.Action != ah.ActionJobDeadLettered || evt.Severity != ah.SeverityCritical {
		t.Errorf("Action/Severity: got %q/%q", evt.Action, evt.Severity)
	}
	if evt.ResourceID != "ocr-009" || evt.Reason != entry.Error {
		t.Errorf("ResourceID/Reason: got %q/%q", evt.ResourceID, evt.Reason)
	}
	if evt.Metadata["attempts"] != 3 || evt.Metadata["dlq"] != "doc_jobs_dlq" {
		t.Errorf("Metadata: got %v", evt.Metadata)
	}
	if _, ok := evt.Metadata["request_id"]; ok {
		t.Error("empty request_id should be dropped from metadata")
	}
}

func TestExtension_JobCancelled(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	if err := e.OnJobCancelled(context.Background(), newTestJob(), 0); err != nil {
		t.Fatalf("OnJobCancelled: %v", err)
	}
	if evt := rec.last(); evt.Action != ah.ActionJobCancelled {
		t.Errorf("Action: want %q, got %q", ah.ActionJobCancelled, evt.Action)
	}
}

// ── Filtering ────────────────────────────────────────

func TestExtension_WithActions(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec, ah.WithActions(ah.ActionJobDeadLettered))
	ctx := context.Background()

	_ = e.OnJobClaimed(ctx, newTestJob(), 1)
	_ = e.OnJobCompleted(ctx, newTestJob(), nil, time.Second)
	_ = e.OnJobDeadLettered(ctx, &dlq.Entry{JobID: "x"})

	if rec.count() != 1 {
		t.Fatalf("events = %d, want 1", rec.count())
	}
	if rec.last().Action != ah.ActionJobDeadLettered {
		t.Errorf("Action: got %q", rec.last().Action)
	}
}

func TestExtension_RecorderErrorIsSwallowed(t *testing.T) {
	failing := ah.RecorderFunc(func(context.Context, *ah.AuditEvent) error {
		return errors.New("backend down")
	})
	var buf bytes.Buffer
	e := ah.New(failing, ah.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	if err := e.OnJobClaimed(context.Background(), newTestJob(), 1); err != nil {
		t.Fatalf("OnJobClaimed returned %v, want nil", err)
	}
	if !strings.Contains(buf.String(), "failed to record audit event") {
		t.Errorf("log = %q, want a warning", buf.String())
	}
}

// ── Recorders ────────────────────────────────────────

func TestLogRecorder_LevelsBySeverity(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := ah.New(ah.LogRecorder(logger))
	ctx := context.Background()

	_ = e.OnJobClaimed(ctx, newTestJob(), 1)
	_ = e.OnJobDeadLettered(ctx, &dlq.Entry{JobID: "ocr-009", Error: "Input file was not found."})

	out := buf.String()
	if !strings.Contains(out, `"level":"INFO"`) || !strings.Contains(out, `"action":"job.claimed"`) {
		t.Errorf("claimed line missing: %s", out)
	}
	if !strings.Contains(out, `"level":"ERROR"`) || !strings.Contains(out, `"reason":"Input file was not found."`) {
		t.Errorf("dead-letter line missing: %s", out)
	}
}

func TestExtension_ViaRegistry(t *testing.T) {
	rec := &mockRecorder{}
	reg := ext.NewRegistry(slog.Default())
	reg.Register(ah.New(rec))

	reg.EmitJobClaimed(context.Background(), newTestJob(), 1)
	if rec.count() != 1 {
		t.Fatalf("events = %d, want 1", rec.count())
	}
}
