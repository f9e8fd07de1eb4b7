package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/backoff"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/id"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/queue"
)

// Failure describes a job that is being dead-lettered.
type Failure struct {
	// Job is the parsed job. Nil when the payload failed to parse.
	Job *job.Job
	// Raw is the body exactly as it was popped.
	Raw []byte
	// Target is the queue target the body was popped from.
	Target queue.Target

	Fault       *fault.Error
	Attempts    int
	MaxAttempts int
	Stage       string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithWorkerID sets the worker id recorded in entries.
func WithWorkerID(workerID string) Option {
	return func(s *Service) { s.workerID = workerID }
}

// WithPolicy overrides the retry policy of DLQ writes.
func WithPolicy(p backoff.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// Service provides high-level DLQ operations over a Store.
type Service struct {
	store    Store
	queues   queue.Store
	policy   backoff.Policy
	logger   *slog.Logger
	workerID string
	now      func() time.Time
}

// NewService creates a DLQ service. queues is used for the lossless
// fallback of Push and for Replay.
func NewService(store Store, queues queue.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		queues: queues,
		policy: backoff.RedisPolicy(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Build assembles the entry for f without persisting it.
func (s *Service) Build(f Failure) *Entry {
	fe := f.Fault
	if fe == nil {
		fe = fault.New(fault.System, fault.CodeProcessingFailed, fault.MessageFor(fault.CodeProcessingFailed))
	}
	e := &Entry{
		SchemaVersion: SchemaVersion,
		ID:            id.NewDLQID(),
		JobID:         fe.JobID,
		Payload:       RawPayload(f.Raw),
		Status:        "FAILED",
		Error:         fe.Message,
		ErrorCode:     fe.Code,
		ErrorType:     fe.Type,
		ErrorDetail:   fe.Detail,
		Attempts:      max(1, f.Attempts),
		MaxAttempts:   max(1, f.MaxAttempts),
		FailedAt:      s.now().UTC(),
		FailedStage:   f.Stage,
		QueueName:     f.Target.Queue,
		DLQName:       f.Target.DLQ,
		QueueSource:   f.Target.Label,
		WorkerID:      s.workerID,
	}
	if e.FailedStage == "" {
		e.FailedStage = "Processing failed"
	}
	if j := f.Job; j != nil {
		e.JobID = j.ID
		e.RequestID = j.RequestID
		e.JobType = string(j.Type)
		e.InputType = string(j.InputType)
	}
	return e
}

// Push persists the dead-letter entry for f. If the DLQ write keeps
// failing the raw payload is re-pushed onto its origin queue and the DLQ
// error is returned.
func (s *Service) Push(ctx context.Context, f Failure) (*Entry, error) {
	e := s.Build(f)
	err := backoff.Retry(ctx, s.policy, func(ctx context.Context) error {
		return s.store.PushDLQ(ctx, e.DLQName, e)
	}, nil, func(attempt int, delay time.Duration, err error) {
		s.logger.Warn("dlq push retry",
			slog.String("job_id", e.JobID),
			slog.String("dlq", e.DLQName),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", fault.Scrub(err.Error())),
		)
	})
	if err == nil {
		s.logger.Error("job moved to dlq",
			slog.String("job_id", e.JobID),
			slog.String("request_id", e.RequestID),
			slog.String("dlq", e.DLQName),
			slog.String("error_code", e.ErrorCode),
			slog.String("error_type", string(e.ErrorType)),
			slog.Int("attempts", e.Attempts),
		)
		return e, nil
	}

	// Keep the work: put the original body back where it came from.
	if perr := s.queues.Push(context.WithoutCancel(ctx), e.QueueName, f.Raw); perr != nil {
		s.logger.Error("dlq push and fallback requeue failed",
			slog.String("job_id", e.JobID),
			slog.String("queue", e.QueueName),
			slog.String("error", fault.Scrub(perr.Error())),
		)
		return e, fmt.Errorf("dlq: push %s: %w (requeue: %w)", e.DLQName, err, perr)
	}
	s.logger.Error("dlq push failed, payload requeued",
		slog.String("job_id", e.JobID),
		slog.String("queue", e.QueueName),
		slog.String("error", fault.Scrub(err.Error())),
	)
	return e, fmt.Errorf("dlq: push %s: %w", e.DLQName, err)
}

// Store returns the underlying DLQ store for List, Get and Count.
func (s *Service) Store() Store { return s.store }
