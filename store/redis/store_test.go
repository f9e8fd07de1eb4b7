package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/queue"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/status"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/store/redis"
)

func newTestStore(t *testing.T) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.New(client), mr
}

// ──────────────────────────────────────────────────
// Queue tests
// ──────────────────────────────────────────────────

func TestQueue_PushPopFIFO(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"a", "b"} {
		if err := s.Push(ctx, "doc_jobs", []byte(p)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if n, err := s.Len(ctx, "doc_jobs"); err != nil || n != 2 {
		t.Fatalf("Len = %d, %v; want 2", n, err)
	}

	for _, want := range []string{"a", "b"} {
		d, err := s.Pop(ctx, []string{"doc_jobs"}, time.Second)
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if d.Queue != "doc_jobs" || string(d.Payload) != want {
			t.Errorf("Pop = %q from %q, want %q", d.Payload, d.Queue, want)
		}
	}
}

func TestQueue_PopPrefersFirstQueue(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_ = s.Push(ctx, "cloud", []byte("c"))
	_ = s.Push(ctx, "local", []byte("l"))

	d, err := s.Pop(ctx, []string{"local", "cloud"}, time.Second)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if d.Queue != "local" {
		t.Errorf("Queue = %q, want local", d.Queue)
	}
}

func TestQueue_PopEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Pop(context.Background(), []string{"doc_jobs"}, time.Second)
	if !errors.Is(err, queue.ErrEmpty) {
		t.Fatalf("Pop error = %v, want ErrEmpty", err)
	}
}

// ──────────────────────────────────────────────────
// Status tests
// ──────────────────────────────────────────────────

func TestStatus_ApplyAndGet(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	p := status.Patch{
		Status:    status.Processing,
		Stage:     "claimed",
		Progress:  status.Ptr(0),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		JobType:   "OCR",
		Attempts:  1,
	}
	prev, err := s.ApplyStatus(ctx, "job-1", p, time.Hour)
	if err != nil {
		t.Fatalf("ApplyStatus: %v", err)
	}
	if prev != status.None {
		t.Errorf("previous = %q, want none", prev)
	}

	rec, err := s.GetStatus(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if rec.Status != status.Processing || rec.Stage != "claimed" || rec.JobType != "OCR" || rec.Attempts != 1 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Progress == nil || *rec.Progress != 0 {
		t.Errorf("progress = %v, want 0", rec.Progress)
	}

	if ttl := mr.TTL("job_status:job-1"); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}
}

func TestStatus_TerminalBlocksOtherStatus(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ApplyStatus(ctx, "job-1", status.Patch{Status: status.Completed, Stage: "done"}, time.Hour); err != nil {
		t.Fatal(err)
	}

	prev, err := s.ApplyStatus(ctx, "job-1", status.Patch{Status: status.Processing, Stage: "claimed"}, time.Hour)
	if !errors.Is(err, status.ErrTransitionBlocked) {
		t.Fatalf("error = %v, want ErrTransitionBlocked", err)
	}
	if prev != status.Completed {
		t.Errorf("previous = %q, want COMPLETED", prev)
	}

	rec, _ := s.GetStatus(ctx, "job-1")
	if rec.Status != status.Completed || rec.Stage != "done" {
		t.Errorf("record changed: %+v", rec)
	}
}

func TestStatus_SameTerminalIsIgnored(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, _ = s.ApplyStatus(ctx, "job-1", status.Patch{Status: status.Cancelled, Stage: "cancelled"}, time.Hour)

	prev, err := s.ApplyStatus(ctx, "job-1", status.Patch{Status: status.Cancelled, Stage: "again"}, time.Hour)
	if err != nil {
		t.Fatalf("ApplyStatus: %v", err)
	}
	if prev != status.Cancelled {
		t.Errorf("previous = %q, want CANCELLED", prev)
	}
	rec, _ := s.GetStatus(ctx, "job-1")
	if rec.Stage != "cancelled" {
		t.Errorf("Stage = %q, want cancelled", rec.Stage)
	}
}

func TestStatus_LowercaseCurrentIsNormalized(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	mr.HSet("job_status:job-1", "status", " failed ")

	_, err := s.ApplyStatus(ctx, "job-1", status.Patch{Status: status.Processing}, time.Hour)
	if !errors.Is(err, status.ErrTransitionBlocked) {
		t.Fatalf("error = %v, want ErrTransitionBlocked", err)
	}
}

func TestStatus_StageOnlyWriteKeepsStatus(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, _ = s.ApplyStatus(ctx, "job-1", status.Patch{Status: status.Processing, Stage: "ocr"}, time.Hour)
	if _, err := s.ApplyStatus(ctx, "job-1", status.Patch{Stage: "retry scheduled", Error: status.Ptr("")}, time.Hour); err != nil {
		t.Fatalf("ApplyStatus: %v", err)
	}

	rec, _ := s.GetStatus(ctx, "job-1")
	if rec.Status != status.Processing || rec.Stage != "retry scheduled" || rec.Error != "" {
		t.Errorf("record = %+v", rec)
	}
}

func TestStatus_NotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetStatus(context.Background(), "missing")
	if !errors.Is(err, status.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

// ──────────────────────────────────────────────────
// Attempt ledger tests
// ──────────────────────────────────────────────────

func TestLedger_IncrGetClear(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if n, _ := s.Attempts(ctx, "job-1"); n != 0 {
		t.Fatalf("Attempts = %d, want 0", n)
	}
	for want := 1; want <= 3; want++ {
		n, err := s.IncrAttempts(ctx, "job-1")
		if err != nil || n != want {
			t.Fatalf("IncrAttempts = %d, %v; want %d", n, err, want)
		}
	}
	if err := s.ClearAttempts(ctx, "job-1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Attempts(ctx, "job-1"); n != 0 {
		t.Errorf("Attempts after clear = %d, want 0", n)
	}
}

// ──────────────────────────────────────────────────
// DLQ tests
// ──────────────────────────────────────────────────

func TestDLQ_NewestFirst(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		e := &dlq.Entry{JobID: id, Payload: dlq.RawPayload([]byte(`{"job_id":"` + id + `"}`))}
		if err := s.PushDLQ(ctx, "doc_jobs_dlq", e); err != nil {
			t.Fatalf("PushDLQ: %v", err)
		}
	}

	if n, _ := s.CountDLQ(ctx, "doc_jobs_dlq"); n != 3 {
		t.Fatalf("CountDLQ = %d, want 3", n)
	}

	entries, err := s.ListDLQ(ctx, "doc_jobs_dlq", dlq.ListOpts{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].JobID != "c" || entries[1].JobID != "b" {
		t.Fatalf("ListDLQ = %+v", entries)
	}

	page, _ := s.ListDLQ(ctx, "doc_jobs_dlq", dlq.ListOpts{Offset: 2})
	if len(page) != 1 || page[0].JobID != "a" {
		t.Fatalf("ListDLQ offset 2 = %+v", page)
	}

	e, err := s.GetDLQ(ctx, "doc_jobs_dlq", 2)
	if err != nil {
		t.Fatal(err)
	}
	if e.JobID != "a" || string(e.Payload) != `{"job_id":"a"}` {
		t.Errorf("GetDLQ = %+v", e)
	}
}

func TestDLQ_GetOutOfRange(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetDLQ(context.Background(), "doc_jobs_dlq", 5)
	if !errors.Is(err, dlq.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDLQ_SkipsUndecodableEntries(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_ = s.PushDLQ(ctx, "doc_jobs_dlq", &dlq.Entry{JobID: "ok"})
	if _, err := mr.Lpush("doc_jobs_dlq", "not json"); err != nil {
		t.Fatal(err)
	}

	entries, err := s.ListDLQ(ctx, "doc_jobs_dlq", dlq.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].JobID != "ok" {
		t.Fatalf("ListDLQ = %+v", entries)
	}
}
