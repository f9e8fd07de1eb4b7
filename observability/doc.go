// Package observability provides an OpenTelemetry metrics extension for
// the worker. The MetricsExtension implements lifecycle hooks to record
// system-wide counters for claim, completion, retry, dead-letter and
// cancellation events.
//
// For per-execution tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
