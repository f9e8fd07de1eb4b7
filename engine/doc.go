// Package engine wires every worker subsystem together from a
// transcribe.Worker, its store, the queue targets and the capabilities.
//
// The engine package sits above all subsystem packages and below the
// application layer, so the root package never imports them back.
//
// # Building an Engine
//
//	w, err := transcribe.New(
//	    transcribe.WithStore(redis.New(client)),
//	    transcribe.WithConcurrency(4),
//	)
//
//	targets, err := queue.Resolve(queue.ModeSingle, queue.Names{
//	    Queue: "doc_jobs",
//	    DLQ:   "doc_jobs_dlq",
//	})
//
//	eng, err := engine.Build(w,
//	    engine.WithTargets(targets),
//	    engine.WithCapability(capability.OCR, ocr),
//	    engine.WithCapability(capability.Transcription, stt),
//	)
//	eng.Start(ctx)
//	defer eng.Stop(shutdownCtx)
//
// # Execution stack
//
// Every capability call runs inside recover, scope, logging, tracing,
// metrics and timeout middleware, outermost first. Middleware added with
// [WithMiddleware] runs innermost.
//
// # Options
//
//   - [WithTargets]: set the consumed queues (required)
//   - [WithCapability]: register a capability (at least one required)
//   - [WithExtension]: register a lifecycle extension
//   - [WithMiddleware]: add a middleware to the execution chain
//   - [WithBackoff]: set the retry delay strategy
//   - [WithAdmissionLimit]: override a capability's admission policy
//   - [WithTracerProvider]: set the OpenTelemetry tracer provider
//   - [WithMeterProvider]: set the OpenTelemetry meter provider
package engine
