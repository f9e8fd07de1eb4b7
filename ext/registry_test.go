package ext_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ext"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
)

// ──────────────────────────────────────────────────
// Test extensions
// ──────────────────────────────────────────────────

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnJobClaimed(_ context.Context, _ *job.Job, _ int) error {
	e.calls = append(e.calls, "OnJobClaimed")
	return nil
}

func (e *allHooksExt) OnJobCompleted(_ context.Context, _ *job.Job, _ *job.Result, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobCompleted")
	return nil
}

func (e *allHooksExt) OnJobRetrying(_ context.Context, _ *job.Job, _ *fault.Error, _ int, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobRetrying")
	return nil
}

func (e *allHooksExt) OnJobDeadLettered(_ context.Context, _ *dlq.Entry) error {
	e.calls = append(e.calls, "OnJobDeadLettered")
	return nil
}

func (e *allHooksExt) OnJobCancelled(_ context.Context, _ *job.Job, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobCancelled")
	return nil
}

func (e *allHooksExt) OnShutdown(_ context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// completionOnlyExt only implements the completion hook.
type completionOnlyExt struct {
	calls []string
}

func (e *completionOnlyExt) Name() string { return "completion-only" }

func (e *completionOnlyExt) OnJobCompleted(_ context.Context, _ *job.Job, _ *job.Result, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobCompleted")
	return nil
}

// failingExt returns errors from hooks.
type failingExt struct{}

func (e *failingExt) Name() string { return "failing" }

func (e *failingExt) OnJobClaimed(_ context.Context, _ *job.Job, _ int) error {
	return errors.New("boom")
}

func (e *failingExt) OnShutdown(_ context.Context) error {
	return errors.New("shutdown boom")
}

func testJob() *job.Job {
	return &job.Job{ID: "tr-001", Type: job.TypeTranscription, Queue: "doc_jobs"}
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestRegistry_EmitsEveryHook(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	e := &allHooksExt{}
	r.Register(e)

	ctx := context.Background()
	j := testJob()
	r.EmitJobClaimed(ctx, j, 1)
	r.EmitJobCompleted(ctx, j, &job.Result{JobID: j.ID}, time.Second)
	r.EmitJobRetrying(ctx, j, fault.New(fault.System, fault.CodeInfraRedis, ""), 1, time.Second)
	r.EmitJobDeadLettered(ctx, &dlq.Entry{JobID: j.ID})
	r.EmitJobCancelled(ctx, j, 0)
	r.EmitShutdown(ctx)

	want := []string{
		"OnJobClaimed", "OnJobCompleted", "OnJobRetrying",
		"OnJobDeadLettered", "OnJobCancelled", "OnShutdown",
	}
	if len(e.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", e.calls, want)
	}
	for i := range want {
		if e.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, e.calls[i], want[i])
		}
	}
}

func TestRegistry_OnlyImplementedHooks(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	e := &completionOnlyExt{}
	r.Register(e)

	ctx := context.Background()
	j := testJob()
	r.EmitJobClaimed(ctx, j, 1)
	r.EmitJobCompleted(ctx, j, &job.Result{}, time.Second)
	r.EmitShutdown(ctx)

	if len(e.calls) != 1 || e.calls[0] != "OnJobCompleted" {
		t.Errorf("calls = %v, want [OnJobCompleted]", e.calls)
	}
}

func TestRegistry_HookErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	r := ext.NewRegistry(slog.New(slog.NewTextHandler(&buf, nil)))
	after := &allHooksExt{}
	r.Register(&failingExt{})
	r.Register(after)

	r.EmitJobClaimed(context.Background(), testJob(), 1)
	r.EmitShutdown(context.Background())

	out := buf.String()
	if !strings.Contains(out, "extension=failing") || !strings.Contains(out, "hook=OnJobClaimed") {
		t.Errorf("hook error not logged: %q", out)
	}
	if len(after.calls) != 2 {
		t.Errorf("later extension must still be notified, calls = %v", after.calls)
	}
}

func TestRegistry_Extensions(t *testing.T) {
	r := ext.NewRegistry(nil)
	r.Register(&allHooksExt{})
	r.Register(&completionOnlyExt{})

	exts := r.Extensions()
	if len(exts) != 2 {
		t.Fatalf("expected 2 extensions, got %d", len(exts))
	}
	if exts[0].Name() != "all-hooks" || exts[1].Name() != "completion-only" {
		t.Errorf("extensions out of order: %s, %s", exts[0].Name(), exts[1].Name())
	}
}
