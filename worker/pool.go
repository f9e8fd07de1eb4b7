package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/backoff"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/queue"
)

// Pool manages a set of concurrent worker goroutines that pop deliveries
// from every target queue and run them through the Executor.
type Pool struct {
	queues      queue.Store
	targets     queue.Targets
	executor    *Executor
	concurrency int
	popTimeout  time.Duration
	errBackoff  backoff.Strategy
	workerID    string
	logger      *slog.Logger

	// stopCtx ends pops, admission waits and retry delays on Stop.
	stopCtx    context.Context
	stopCancel context.CancelFunc

	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
	activeJobs map[int]context.CancelFunc
	activeMu   sync.Mutex
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of concurrent worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithPopTimeout sets the bounded wait of each blocking pop.
func WithPopTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.popTimeout = d
		}
	}
}

// WithErrorBackoff sets the delay strategy applied after consecutive pop
// errors.
func WithErrorBackoff(s backoff.Strategy) PoolOption {
	return func(p *Pool) { p.errBackoff = s }
}

// WithPoolWorkerID sets the identifier logged by the pool.
func WithPoolWorkerID(id string) PoolOption {
	return func(p *Pool) { p.workerID = id }
}

// NewPool creates a worker pool.
func NewPool(
	queues queue.Store,
	targets queue.Targets,
	executor *Executor,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	p := &Pool{
		queues:      queues,
		targets:     targets,
		executor:    executor,
		concurrency: 4,
		popTimeout:  5 * time.Second,
		errBackoff:  backoff.NewJittered(500*time.Millisecond, 10*time.Second, 0.2),
		logger:      logger,
		activeJobs:  make(map[int]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true
	p.stopCtx, p.stopCancel = context.WithCancel(context.Background())

	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID),
		slog.Int("concurrency", p.concurrency),
		slog.Any("queues", p.targets.Queues()),
	)

	for n := range p.concurrency {
		p.wg.Add(1)
		go p.dequeueLoop(n)
	}

	return nil
}

// Stop signals all workers to stop and waits for in-flight jobs to finish.
// When ctx ends first, active jobs are cancelled and given back to their
// queues.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.String("worker_id", p.workerID))

	p.stopCancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, cancelling active jobs")
		p.cancelActiveJobs()
		p.wg.Wait()
	}

	return nil
}

// Running reports whether the pool has been started and not stopped.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// dequeueLoop is run by each worker goroutine. Store errors back off and
// never end the loop; only Stop does.
func (p *Pool) dequeueLoop(n int) {
	defer p.wg.Done()

	failures := 0
	for {
		if p.stopCtx.Err() != nil {
			return
		}

		d, err := p.queues.Pop(p.stopCtx, p.targets.Queues(), p.popTimeout)
		switch {
		case errors.Is(err, queue.ErrEmpty):
			failures = 0
			continue
		case err != nil:
			if p.stopCtx.Err() != nil {
				return
			}
			failures++
			delay := p.errBackoff.Delay(failures)
			p.logger.Error("dequeue error",
				slog.Int("worker", n),
				slog.Int("consecutive_failures", failures),
				slog.Duration("retry_in", delay),
				slog.String("error", fault.Scrub(err.Error())),
			)
			_ = backoff.Sleep(p.stopCtx, delay)
			continue
		}
		failures = 0

		p.run(n, d)
	}
}

func (p *Pool) run(n int, d *queue.Delivery) {
	ctx, cancel := context.WithCancel(context.Background())
	p.trackJob(n, cancel)
	defer func() {
		p.untrackJob(n)
		cancel()
	}()

	out := p.executor.handle(ctx, p.stopCtx, d)
	p.logger.Debug("delivery handled",
		slog.Int("worker", n),
		slog.String("queue", d.Queue),
		slog.String("outcome", string(out)),
	)
}

func (p *Pool) trackJob(n int, cancel context.CancelFunc) {
	p.activeMu.Lock()
	p.activeJobs[n] = cancel
	p.activeMu.Unlock()
}

func (p *Pool) untrackJob(n int) {
	p.activeMu.Lock()
	delete(p.activeJobs, n)
	p.activeMu.Unlock()
}

// Active returns the number of deliveries currently being handled.
func (p *Pool) Active() int {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	return len(p.activeJobs)
}

func (p *Pool) cancelActiveJobs() {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	for n, cancel := range p.activeJobs {
		p.logger.Warn("cancelling active job", slog.Int("worker", n))
		cancel()
	}
}
