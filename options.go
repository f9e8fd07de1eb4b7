package transcribe

import (
	"context"
	"log/slog"
	"time"
)

// Option configures a Worker.
type Option func(*Worker) error

// Storer is the minimal store interface held by the Worker. It covers
// lifecycle operations only; the subsystem contracts (queue.Store,
// status.Store, ledger.Store, dlq.Store) are asserted by the engine
// package, which sits above them and avoids an import cycle.
type Storer interface {
	Ping(ctx context.Context) error
	Close() error
}

// poolRunner is an internal interface for worker pool lifecycle.
type poolRunner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// extensionEmitter is an internal interface for extension lifecycle events.
type extensionEmitter interface {
	EmitShutdown(ctx context.Context)
}

// Worker is the process-level coordinator. Create one with New() and
// functional options, then hand it to engine.Build which wires the pool,
// executor, and subsystems back into it.
type Worker struct {
	config     Config
	logger     *slog.Logger
	store      Storer
	extensions extensionEmitter
	pool       poolRunner

	started bool
}

// New creates a new Worker with the given options.
func New(opts ...Option) (*Worker, error) {
	w := &Worker{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Logger returns the worker's logger.
func (w *Worker) Logger() *slog.Logger { return w.logger }

// Store returns the worker's store.
func (w *Worker) Store() Storer { return w.store }

// Config returns a copy of the worker's configuration.
func (w *Worker) Config() Config { return w.config }

// SetPool sets the worker pool (called by the engine package).
func (w *Worker) SetPool(p poolRunner) { w.pool = p }

// SetExtensions sets the extension emitter (called by the engine package).
func (w *Worker) SetExtensions(e extensionEmitter) { w.extensions = e }

// Start begins job processing. It returns immediately.
func (w *Worker) Start(ctx context.Context) error {
	if w.pool == nil {
		return ErrNoStore
	}
	if w.started {
		return ErrAlreadyStarted
	}
	if err := w.pool.Start(ctx); err != nil {
		return err
	}
	w.started = true
	return nil
}

// Stop gracefully shuts down the worker pool, notifies extensions, and
// closes the store.
func (w *Worker) Stop(ctx context.Context) error {
	if w.pool != nil && w.started {
		if err := w.pool.Stop(ctx); err != nil {
			w.logger.Error("pool stop error", slog.String("error", err.Error()))
		}
		w.started = false
	}
	if w.extensions != nil {
		w.extensions.EmitShutdown(ctx)
	}
	if w.store != nil {
		return w.store.Close()
	}
	return nil
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(w *Worker) error {
		w.config = cfg
		return nil
	}
}

// WithConcurrency sets the number of polling goroutines.
func WithConcurrency(n int) Option {
	return func(w *Worker) error {
		w.config.Concurrency = n
		return nil
	}
}

// WithPopTimeout sets the bounded wait of each blocking pop.
func WithPopTimeout(d time.Duration) Option {
	return func(w *Worker) error {
		w.config.PopTimeout = d
		return nil
	}
}

// WithWorkerID sets the identifier written into status and DLQ records.
func WithWorkerID(id string) Option {
	return func(w *Worker) error {
		w.config.WorkerID = id
		return nil
	}
}

// WithLogger sets the structured logger for the worker.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) error {
		w.logger = l
		return nil
	}
}

// WithStore sets the persistence backend. It must implement Storer at
// minimum; typically it is a store.Store which embeds every subsystem
// contract.
func WithStore(s Storer) Option {
	return func(w *Worker) error {
		w.store = s
		return nil
	}
}
