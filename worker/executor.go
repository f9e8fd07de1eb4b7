// Package worker provides the job execution engine: an Executor that
// takes one popped delivery through parse, claim, routing, admission,
// execution and the retry or dead-letter decision, and a Pool that runs
// concurrent goroutines polling the target queues.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/admission"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/backoff"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/cancel"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/capability"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ext"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ledger"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/middleware"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/queue"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/route"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/scope"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/status"
)

// Outcome is how one delivery ended.
type Outcome string

const (
	// OutcomeCompleted means the capability succeeded and the record is
	// COMPLETED.
	OutcomeCompleted Outcome = "completed"
	// OutcomeRetried means the payload went back onto its queue for
	// another attempt.
	OutcomeRetried Outcome = "retried"
	// OutcomeDeadLettered means a dead-letter record was written.
	OutcomeDeadLettered Outcome = "dead_lettered"
	// OutcomeCancelled means the job ended CANCELLED.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeDropped means the record was already terminal so nothing ran.
	OutcomeDropped Outcome = "dropped"
	// OutcomeRequeued means the worker gave the payload back unprocessed,
	// on shutdown or when the claim could not be recorded.
	OutcomeRequeued Outcome = "requeued"
)

// Deps are the collaborators of an Executor.
type Deps struct {
	Targets    queue.Targets
	Queues     queue.Store
	Status     *status.Writer
	Attempts   ledger.Store
	Budgets    ledger.Budgets
	DLQ        *dlq.Service
	Cancel     *cancel.Monitor
	Registry   *route.Registry
	Admission  *admission.Controller
	Extensions *ext.Registry
	Backoff    backoff.Strategy
	WorkerID   string
	Logger     *slog.Logger
}

// Executor runs a single delivery through parse, claim, routing,
// admission and the middleware-wrapped capability, then writes the
// terminal status and emits lifecycle events.
type Executor struct {
	targets    queue.Targets
	queues     queue.Store
	status     *status.Writer
	attempts   ledger.Store
	budgets    ledger.Budgets
	dlq        *dlq.Service
	cancel     *cancel.Monitor
	registry   *route.Registry
	admission  *admission.Controller
	extensions *ext.Registry
	backoff    backoff.Strategy
	mw         middleware.Middleware
	workerID   string
	logger     *slog.Logger
	now        func() time.Time
}

// NewExecutor creates an Executor. The middleware wrap every capability
// call, first one outermost.
func NewExecutor(d Deps, mws ...middleware.Middleware) *Executor {
	e := &Executor{
		targets:    d.Targets,
		queues:     d.Queues,
		status:     d.Status,
		attempts:   d.Attempts,
		budgets:    d.Budgets,
		dlq:        d.DLQ,
		cancel:     d.Cancel,
		registry:   d.Registry,
		admission:  d.Admission,
		extensions: d.Extensions,
		backoff:    d.Backoff,
		mw:         middleware.Chain(mws...),
		workerID:   d.WorkerID,
		logger:     d.Logger,
		now:        time.Now,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.extensions == nil {
		e.extensions = ext.NewRegistry(e.logger)
	}
	if e.backoff == nil {
		e.backoff = backoff.DefaultStrategy()
	}
	if e.cancel == nil {
		e.cancel = cancel.NewMonitor(e.status, cancel.WithLogger(e.logger))
	}
	return e
}

// attempt is the state of one delivery as it moves through the pipeline.
type attempt struct {
	raw      []byte
	target   queue.Target
	job      *job.Job
	attempts int
	claimed  bool
	start    time.Time
}

// Handle processes one delivery to a terminal outcome. Status writes and
// requeues that follow a cancelled ctx still happen.
func (e *Executor) Handle(ctx context.Context, d *queue.Delivery) Outcome {
	return e.handle(ctx, ctx, d)
}

// handle uses ctx for the capability call and wait for the interruptible
// phases (admission and retry backoff), which end when the pool stops.
func (e *Executor) handle(ctx, wait context.Context, d *queue.Delivery) (out Outcome) {
	a := &attempt{raw: d.Payload, target: e.targetFor(d.Queue)}

	defer func() {
		if r := recover(); r != nil {
			fe := fault.Panic(r)
			e.logger.Error("job iteration panicked",
				slog.String("queue", d.Queue),
				slog.String("panic", fe.Detail),
			)
			if a.job != nil {
				fe.JobID = a.job.ID
			}
			out = e.fail(ctx, wait, a, fe, "processing")
		}
	}()

	j, err := job.Parse(d.Payload)
	if err != nil {
		fe := fault.From(err)
		e.logger.Warn("job payload rejected",
			slog.String("queue", d.Queue),
			slog.String("job_id", fe.JobID),
			slog.String("error_code", fe.Code),
			slog.String("error", fe.Message),
		)
		return e.deadLetter(ctx, a, fe, 1, 1, "validation")
	}
	j.Queue = d.Queue
	a.job = j

	info := scope.Info{
		JobID:     j.ID,
		RequestID: j.RequestID,
		Queue:     j.Queue,
		WorkerID:  e.workerID,
	}
	ctx = scope.With(ctx, info)

	if cancelled, _ := e.cancel.IsCancelled(ctx, j.ID); cancelled {
		return e.cancelled(ctx, a)
	}

	if out, ok := e.claim(ctx, a); !ok {
		return out
	}

	capID := route.Route(j)
	info.Capability = capID
	info.Attempt = a.attempts
	ctx = scope.With(ctx, info)

	capab, err := e.registry.Get(capID)
	if err != nil {
		fe := fault.Invalid(fault.CodeValidationUnsupported, "no capability registered for %s", capID)
		fe.Message = fault.MessageFor(fault.CodeValidationUnsupported)
		fe.JobID = j.ID
		return e.fail(ctx, wait, a, fe, "routing")
	}

	var permit *admission.Permit
	if e.admission != nil {
		actx, release := mergeCancel(ctx, wait)
		permit, err = e.admission.Acquire(actx, capID)
		release()
		if err != nil {
			if wait.Err() != nil || ctx.Err() != nil {
				return e.giveBack(ctx, a, "shutdown during admission")
			}
			fe := fault.Wrap(err, fault.System, fault.CodeProcessingFailed)
			fe.JobID = j.ID
			return e.fail(ctx, wait, a, fe, "admission")
		}
		defer permit.Release()
	}

	e.extensions.EmitJobClaimed(ctx, j, a.attempts)

	res, err := e.execute(ctx, j, capab)
	if permit != nil {
		permit.Release()
	}

	switch {
	case err == nil:
		return e.completed(ctx, a, res)
	case cancel.Cancelled(ctx) || errors.Is(err, cancel.ErrCancelled):
		return e.cancelled(ctx, a)
	case ctx.Err() != nil:
		return e.giveBack(ctx, a, "shutdown during execution")
	}

	fe := fault.From(err)
	if fe.JobID == "" {
		fe.JobID = j.ID
	}
	return e.fail(ctx, wait, a, fe, "processing")
}

// claim increments the attempt counter and marks the job PROCESSING. It
// reports false with the outcome when processing must not continue.
func (e *Executor) claim(ctx context.Context, a *attempt) (Outcome, bool) {
	j := a.job
	n, err := e.attempts.IncrAttempts(ctx, j.ID)
	if err != nil {
		e.logger.Error("attempt counter unavailable",
			slog.String("job_id", j.ID),
			slog.String("error", fault.Scrub(err.Error())),
		)
		return e.giveBack(ctx, a, "attempt counter unavailable"), false
	}
	a.attempts = n
	a.start = e.now()

	err = e.status.Claimed(ctx, j, n, e.workerID)
	switch {
	case errors.Is(err, status.ErrTransitionBlocked):
		e.logger.Info("job already terminal, dropping",
			slog.String("job_id", j.ID),
			slog.String("request_id", j.RequestID),
		)
		e.clearAttempts(ctx, j.ID)
		return OutcomeDropped, false
	case err != nil:
		e.logger.Warn("claim status write failed, continuing",
			slog.String("job_id", j.ID),
			slog.String("error", fault.Scrub(err.Error())),
		)
	}
	a.claimed = true
	return "", true
}

// execute runs the capability through the middleware chain under a
// cancellation watch.
func (e *Executor) execute(ctx context.Context, j *job.Job, c capability.Capability) (*job.Result, error) {
	wctx, stop := e.cancel.Watch(ctx, j.ID)
	defer stop()

	wctx = capability.WithProgress(wctx, func(pctx context.Context, stage string, pct int) {
		if err := e.status.Progress(context.WithoutCancel(pctx), j.ID, stage, pct); err != nil {
			e.logger.Debug("progress write skipped",
				slog.String("job_id", j.ID),
				slog.String("error", fault.Scrub(err.Error())),
			)
		}
	})

	var res *job.Result
	err := e.mw(wctx, j, func(ctx context.Context) error {
		r, err := c.Execute(ctx, j)
		res = r
		return err
	})
	if err == nil && cancel.Cancelled(wctx) {
		// The watch fired after the capability returned. The work is
		// done, so report it.
		return res, nil
	}
	if err != nil && cancel.Cancelled(wctx) {
		return nil, cancel.ErrCancelled
	}
	return res, err
}

func (e *Executor) completed(ctx context.Context, a *attempt, res *job.Result) Outcome {
	j := a.job
	bg := context.WithoutCancel(ctx)
	elapsed := e.now().Sub(a.start)

	if res == nil {
		res = &job.Result{}
	}
	res.JobID = j.ID
	res.Status = string(status.Completed)
	res.DurationSec = elapsed.Seconds()

	err := e.status.Completed(bg, j, res, elapsed)
	if errors.Is(err, status.ErrTransitionBlocked) {
		e.clearAttempts(bg, j.ID)
		return OutcomeDropped
	}
	if err != nil {
		e.logger.Error("completed status write failed",
			slog.String("job_id", j.ID),
			slog.String("error", fault.Scrub(err.Error())),
		)
	}
	e.clearAttempts(bg, j.ID)
	e.extensions.EmitJobCompleted(bg, j, res, elapsed)
	return OutcomeCompleted
}

func (e *Executor) cancelled(ctx context.Context, a *attempt) Outcome {
	j := a.job
	bg := context.WithoutCancel(ctx)
	var elapsed time.Duration
	if a.claimed {
		elapsed = e.now().Sub(a.start)
	}
	if err := e.status.Cancelled(bg, j, elapsed); err != nil && !errors.Is(err, status.ErrTransitionBlocked) {
		e.logger.Error("cancelled status write failed",
			slog.String("job_id", j.ID),
			slog.String("error", fault.Scrub(err.Error())),
		)
	}
	// A job cancelled between retries still holds the earlier counter.
	e.clearAttempts(bg, j.ID)
	e.logger.Info("job cancelled",
		slog.String("job_id", j.ID),
		slog.String("request_id", j.RequestID),
		slog.Bool("before_dispatch", !a.claimed),
	)
	e.extensions.EmitJobCancelled(bg, j, elapsed)
	return OutcomeCancelled
}

// fail applies the retry decision to a classified failure.
func (e *Executor) fail(ctx, wait context.Context, a *attempt, fe *fault.Error, stage string) Outcome {
	if a.job == nil {
		return e.deadLetter(ctx, a, fe, 1, 1, stage)
	}
	j := a.job
	d := e.budgets.Decide(fe, a.attempts)
	if !d.Retry() {
		return e.deadLetter(ctx, a, fe, a.attempts, d.MaxAttempts, stage)
	}

	delay := e.backoff.Delay(a.attempts)
	e.logger.Warn("job failed, retry scheduled",
		slog.String("job_id", j.ID),
		slog.String("request_id", j.RequestID),
		slog.String("error_code", fe.Code),
		slog.String("category", string(d.Category)),
		slog.Int("attempt", a.attempts),
		slog.Int("budget", d.Budget),
		slog.Duration("delay", delay),
	)
	e.extensions.EmitJobRetrying(ctx, j, fe, a.attempts, delay)

	// Shutdown cuts the delay short; the payload is still pushed back.
	sctx, release := mergeCancel(ctx, wait)
	_ = backoff.Sleep(sctx, delay)
	release()

	bg := context.WithoutCancel(ctx)
	if err := e.status.Requeued(bg, j, "retry scheduled"); err != nil && !errors.Is(err, status.ErrTransitionBlocked) {
		e.logger.Warn("requeue status write failed",
			slog.String("job_id", j.ID),
			slog.String("error", fault.Scrub(err.Error())),
		)
	}
	if err := e.queues.Push(bg, a.target.Queue, a.raw); err != nil {
		e.logger.Error("retry requeue failed, dead-lettering",
			slog.String("job_id", j.ID),
			slog.String("queue", a.target.Queue),
			slog.String("error", fault.Scrub(err.Error())),
		)
		return e.deadLetter(ctx, a, fe, a.attempts, d.MaxAttempts, stage)
	}
	return OutcomeRetried
}

// deadLetter writes the dead-letter record and, for any job with a known
// id, the FAILED status.
func (e *Executor) deadLetter(ctx context.Context, a *attempt, fe *fault.Error, attempts, maxAttempts int, stage string) Outcome {
	bg := context.WithoutCancel(ctx)
	entry, err := e.dlq.Push(bg, dlq.Failure{
		Job:         a.job,
		Raw:         a.raw,
		Target:      a.target,
		Fault:       fe,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		Stage:       stage,
	})
	if err != nil {
		// The service put the payload back onto its origin queue.
		if a.job != nil && a.claimed {
			_ = e.status.Requeued(bg, a.job, "requeued")
		}
		return OutcomeRequeued
	}

	switch {
	case a.job != nil && a.claimed:
		e.markFailed(bg, a.job.ID, a.job.RequestID, fe, e.now().Sub(a.start))
		e.clearAttempts(bg, a.job.ID)
	case a.job == nil && fe.JobID != "":
		// A rejected payload that names its job still ends FAILED.
		e.markFailed(bg, fe.JobID, entry.RequestID, fe, 0)
	}
	e.extensions.EmitJobDeadLettered(bg, entry)
	return OutcomeDeadLettered
}

func (e *Executor) markFailed(ctx context.Context, jobID, requestID string, fe *fault.Error, elapsed time.Duration) {
	if err := e.status.Failed(ctx, jobID, requestID, fe, elapsed); err != nil && !errors.Is(err, status.ErrTransitionBlocked) {
		e.logger.Error("failed status write failed",
			slog.String("job_id", jobID),
			slog.String("error", fault.Scrub(err.Error())),
		)
	}
}

// giveBack returns the payload unprocessed to its origin queue and, for a
// claimed job, records the requeue stage.
func (e *Executor) giveBack(ctx context.Context, a *attempt, reason string) Outcome {
	bg := context.WithoutCancel(ctx)
	jobID := ""
	if a.job != nil {
		jobID = a.job.ID
		if a.claimed {
			if err := e.status.Requeued(bg, a.job, "requeued"); err != nil && !errors.Is(err, status.ErrTransitionBlocked) {
				e.logger.Warn("requeue status write failed",
					slog.String("job_id", jobID),
					slog.String("error", fault.Scrub(err.Error())),
				)
			}
		}
	}
	if err := e.queues.Push(bg, a.target.Queue, a.raw); err != nil {
		e.logger.Error("payload give-back failed",
			slog.String("job_id", jobID),
			slog.String("queue", a.target.Queue),
			slog.String("reason", reason),
			slog.String("error", fault.Scrub(err.Error())),
		)
		return OutcomeRequeued
	}
	e.logger.Info("payload returned to queue",
		slog.String("job_id", jobID),
		slog.String("queue", a.target.Queue),
		slog.String("reason", reason),
	)
	return OutcomeRequeued
}

func (e *Executor) clearAttempts(ctx context.Context, jobID string) {
	if err := e.attempts.ClearAttempts(ctx, jobID); err != nil {
		e.logger.Warn("attempt counter clear failed",
			slog.String("job_id", jobID),
			slog.String("error", fault.Scrub(err.Error())),
		)
	}
}

// targetFor maps a popped queue back to its target so failures always go
// to the originating DLQ.
func (e *Executor) targetFor(q string) queue.Target {
	if t, ok := e.targets.ByQueue(q); ok {
		return t
	}
	t := queue.Target{Queue: q, Label: "unknown"}
	if len(e.targets) > 0 {
		t.DLQ = e.targets[0].DLQ
	} else {
		t.DLQ = fmt.Sprintf("%s_dlq", q)
	}
	return t
}

// mergeCancel returns a context carrying ctx's values that is done when
// either ctx or other is done. The returned func releases it.
func mergeCancel(ctx, other context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(other, func() { cancel(context.Cause(other)) })
	return merged, func() {
		stop()
		cancel(context.Canceled)
	}
}
