package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	transcribe "github.com/arpit-jain-mygit/doc-transcribe-worker"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/admission"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/backoff"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/cancel"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/capability"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ext"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ledger"
	mw "github.com/arpit-jain-mygit/doc-transcribe-worker/middleware"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/observability"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/queue"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/route"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/status"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/store"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/worker"
)

const instrumentationName = "github.com/arpit-jain-mygit/doc-transcribe-worker"

// Engine wraps a Worker with typed subsystem access.
// Use Build() to create one from a Worker.
type Engine struct {
	w          *transcribe.Worker
	store      store.Store
	targets    queue.Targets
	registry   *route.Registry
	extensions *ext.Registry
	writer     *status.Writer
	monitor    *cancel.Monitor
	admission  *admission.Controller
	dlqService *dlq.Service
	executor   *worker.Executor
	pool       *worker.Pool
	bo         backoff.Strategy
	mws        []mw.Middleware
	limits     []admission.Limit
	logger     *slog.Logger

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithTargets sets the queues the worker consumes, in poll order.
func WithTargets(ts queue.Targets) Option {
	return func(eng *Engine) {
		eng.targets = ts
	}
}

// WithCapability registers the capability that executes jobs routed to
// id. Registering the same id twice replaces the first.
func WithCapability(id string, c capability.Capability) Option {
	return func(eng *Engine) {
		eng.registry.Register(id, c)
	}
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.extensions.Register(e)
	}
}

// WithMiddleware adds middleware to the engine's chain. They run inside
// the default stack, closest to the capability.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithBackoff sets the delay before a failed job is re-enqueued.
// If not set, a jittered exponential strategy built from the worker's
// RetryBackoffBase and RetryBackoffMax is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) {
		eng.bo = b
	}
}

// WithAdmissionLimit overrides the admission policy of one capability,
// for example to add a rate limit on top of the in-flight cap.
func WithAdmissionLimit(l admission.Limit) Option {
	return func(eng *Engine) {
		eng.limits = append(eng.limits, l)
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// Both the metrics middleware and the observability extension use it.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// Build creates an Engine from an existing Worker. The Worker's store must
// implement store.Store, at least one target and one capability are
// required.
func Build(w *transcribe.Worker, opts ...Option) (*Engine, error) {
	logger := w.Logger()
	if w.Store() == nil {
		return nil, transcribe.ErrNoStore
	}
	s, ok := w.Store().(store.Store)
	if !ok {
		return nil, fmt.Errorf("transcribe: store does not implement store.Store")
	}

	eng := &Engine{
		w:          w,
		store:      s,
		registry:   route.NewRegistry(),
		extensions: ext.NewRegistry(logger),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if len(eng.targets) == 0 {
		return nil, transcribe.ErrNoTargets
	}
	if eng.registry.Len() == 0 {
		return nil, transcribe.ErrNoCapabilities
	}

	cfg := w.Config()
	if eng.bo == nil {
		eng.bo = backoff.NewJittered(cfg.RetryBackoffBase, cfg.RetryBackoffMax, 0.2)
	}

	eng.writer = status.NewWriter(s,
		status.WithTTL(cfg.StatusTTL),
		status.WithLogger(logger),
	)
	eng.monitor = cancel.NewMonitor(eng.writer,
		cancel.WithPollInterval(cfg.CancelPollInterval),
		cancel.WithLogger(logger),
	)
	eng.dlqService = dlq.NewService(s, s,
		dlq.WithLogger(logger),
		dlq.WithWorkerID(cfg.WorkerID),
	)
	eng.admission = admission.New(eng.admissionLimits(cfg)...)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	var obsExt *observability.MetricsExtension
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
		obsExt = observability.NewMetricsExtensionWithMeter(eng.meterProvider.Meter(instrumentationName + "/observability"))
	} else {
		metricsMw = mw.Metrics()
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)

	// Default stack: recover → scope → logging → tracing → metrics → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(logger),
		mw.Scope(),
		mw.Logging(logger),
		tracingMw,
		metricsMw,
		mw.Timeout(cfg.JobTimeout, logger),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)

	eng.executor = worker.NewExecutor(worker.Deps{
		Targets:    eng.targets,
		Queues:     s,
		Status:     eng.writer,
		Attempts:   s,
		Budgets:    budgetsFrom(cfg),
		DLQ:        eng.dlqService,
		Cancel:     eng.monitor,
		Registry:   eng.registry,
		Admission:  eng.admission,
		Extensions: eng.extensions,
		Backoff:    eng.bo,
		WorkerID:   cfg.WorkerID,
		Logger:     logger,
	}, allMws...)

	eng.pool = worker.NewPool(s, eng.targets, eng.executor, logger,
		worker.WithPoolConcurrency(cfg.Concurrency),
		worker.WithPopTimeout(cfg.PopTimeout),
		worker.WithPoolWorkerID(cfg.WorkerID),
	)

	// Wire back into the Worker.
	w.SetPool(eng.pool)
	w.SetExtensions(eng.extensions)

	logger.Info("engine built",
		slog.String("worker_id", cfg.WorkerID),
		slog.Any("queues", eng.targets.Queues()),
		slog.Any("capabilities", eng.registry.IDs()),
	)
	return eng, nil
}

// admissionLimits returns one limit per registered capability. Explicit
// WithAdmissionLimit entries win over the configured in-flight caps.
func (eng *Engine) admissionLimits(cfg transcribe.Config) []admission.Limit {
	override := make(map[string]admission.Limit, len(eng.limits))
	for _, l := range eng.limits {
		override[l.Capability] = l
	}

	ids := eng.registry.IDs()
	limits := make([]admission.Limit, 0, len(ids))
	for _, id := range ids {
		if l, ok := override[id]; ok {
			limits = append(limits, l)
			continue
		}
		l := admission.Limit{Capability: id}
		switch id {
		case capability.OCR:
			l.MaxInFlight = cfg.MaxInflightOCR
		case capability.Transcription:
			l.MaxInFlight = cfg.MaxInflightTranscription
		}
		limits = append(limits, l)
	}
	return limits
}

func budgetsFrom(cfg transcribe.Config) ledger.Budgets {
	b := ledger.Budgets{
		Transient: cfg.RetryBudgetTransient,
		Media:     cfg.RetryBudgetMedia,
		Default:   cfg.RetryBudgetDefault,
	}
	if len(cfg.RetryBudgetByType) > 0 {
		b.ByType = make(map[fault.Type]int, len(cfg.RetryBudgetByType))
		for k, v := range cfg.RetryBudgetByType {
			b.ByType[fault.Type(strings.ToUpper(strings.TrimSpace(k)))] = v
		}
	}
	return b
}

// Start begins job processing.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.w.Start(ctx)
}

// Stop gracefully shuts down the engine. In-flight jobs get until ctx ends
// to finish; the rest are given back to their queues.
func (eng *Engine) Stop(ctx context.Context) error {
	return eng.w.Stop(ctx)
}

// Ready reports whether the backing store is reachable.
func (eng *Engine) Ready(ctx context.Context) error {
	return eng.store.Ping(ctx)
}

// Worker returns the underlying Worker.
func (eng *Engine) Worker() *transcribe.Worker { return eng.w }

// Store returns the backing store.
func (eng *Engine) Store() store.Store { return eng.store }

// Targets returns the consumed queue targets in poll order.
func (eng *Engine) Targets() queue.Targets { return eng.targets }

// Registry returns the capability registry.
func (eng *Engine) Registry() *route.Registry { return eng.registry }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Status returns the status writer.
func (eng *Engine) Status() *status.Writer { return eng.writer }

// Cancel returns the cancellation monitor.
func (eng *Engine) Cancel() *cancel.Monitor { return eng.monitor }

// Admission returns the admission controller.
func (eng *Engine) Admission() *admission.Controller { return eng.admission }

// DLQService returns the engine's DLQ service for replay and inspection.
func (eng *Engine) DLQService() *dlq.Service { return eng.dlqService }

// Executor returns the executor.
func (eng *Engine) Executor() *worker.Executor { return eng.executor }

// Pool returns the worker pool.
func (eng *Engine) Pool() *worker.Pool { return eng.pool }
