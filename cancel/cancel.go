// Package cancel implements cooperative job cancellation.
//
// A job is cancelled when its status record carries cancel_requested=1 or
// its status is CANCELLED. The orchestrator checks this before claiming a
// job, and [Monitor.Watch] keeps checking while the capability runs,
// cancelling the capability's context with cause [ErrCancelled] when the
// flag appears. Capabilities call [Check] between pages or chunks.
package cancel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/backoff"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/status"
)

// ErrCancelled is the cause of a context cancelled by the monitor, and the
// error capabilities return when they stop early.
var ErrCancelled = errors.New("cancel: job cancelled")

// DefaultPollInterval is how often Watch re-reads the cancel flag.
const DefaultPollInterval = 2 * time.Second

// Option configures a Monitor.
type Option func(*Monitor)

// WithPollInterval sets the Watch polling interval. Zero disables
// in-flight polling.
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithPolicy overrides the retry policy of cancel-flag reads.
func WithPolicy(p backoff.Policy) Option {
	return func(m *Monitor) { m.policy = p }
}

// WithLogger sets the monitor logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// Monitor reads and writes the cancel flag of jobs.
type Monitor struct {
	writer   *status.Writer
	interval time.Duration
	policy   backoff.Policy
	logger   *slog.Logger
}

// NewMonitor creates a Monitor over the status writer's store.
func NewMonitor(w *status.Writer, opts ...Option) *Monitor {
	m := &Monitor{
		writer:   w,
		interval: DefaultPollInterval,
		policy:   backoff.RedisPolicy(),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func retryable(err error) bool {
	return !errors.Is(err, status.ErrNotFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// IsCancelled reports whether jobID has been asked to stop. Store errors
// are retried; if the store stays unavailable it returns false so the job
// continues, along with the last error.
func (m *Monitor) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	var rec *status.Record
	err := backoff.Retry(ctx, m.policy, func(ctx context.Context) error {
		r, err := m.writer.Store().GetStatus(ctx, jobID)
		if err != nil {
			return err
		}
		rec = r
		return nil
	}, retryable, func(attempt int, _ time.Duration, err error) {
		m.logger.Warn("cancel check store error",
			slog.String("job_id", jobID),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", m.policy.MaxRetries),
			slog.String("error", fault.Scrub(err.Error())),
		)
	})
	switch {
	case err == nil:
		return rec.IsCancelled(), nil
	case errors.Is(err, status.ErrNotFound):
		return false, nil
	default:
		m.logger.Warn("cancel check store unavailable, continuing",
			slog.String("job_id", jobID),
		)
		return false, err
	}
}

// Request sets the cancel flag of jobID. Requesting twice, or requesting
// for an already cancelled job, is a no-op. A job that already completed or
// failed returns status.ErrTransitionBlocked.
func (m *Monitor) Request(ctx context.Context, jobID string) error {
	err := m.writer.Write(ctx, jobID, status.Patch{CancelRequested: true})
	if errors.Is(err, status.ErrTransitionBlocked) {
		rec, gerr := m.writer.Store().GetStatus(ctx, jobID)
		if gerr == nil && rec.Status == status.Cancelled {
			return nil
		}
	}
	return err
}

// Watch returns a context derived from ctx that is cancelled with cause
// ErrCancelled once jobID is cancelled. The returned CancelFunc stops
// polling and must always be called.
func (m *Monitor) Watch(ctx context.Context, jobID string) (context.Context, context.CancelFunc) {
	wctx, cancel := context.WithCancelCause(ctx)
	stop := func() { cancel(context.Canceled) }
	if m.interval <= 0 {
		return wctx, stop
	}

	go func() {
		t := time.NewTicker(m.interval)
		defer t.Stop()
		for {
			select {
			case <-wctx.Done():
				return
			case <-t.C:
				ok, _ := m.IsCancelled(wctx, jobID)
				if ok {
					m.logger.Info("job cancel observed",
						slog.String("job_id", jobID),
					)
					cancel(ErrCancelled)
					return
				}
			}
		}
	}()
	return wctx, stop
}

// Cancelled reports whether ctx was cancelled because its job was
// cancelled.
func Cancelled(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrCancelled)
}

// Check is the checkpoint capabilities call between units of work. It
// returns ErrCancelled if the job was cancelled, ctx.Err() if the context
// ended for another reason, and nil otherwise.
func Check(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	if Cancelled(ctx) {
		return ErrCancelled
	}
	return ctx.Err()
}
