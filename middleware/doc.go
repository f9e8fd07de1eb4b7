// Package middleware provides composable middleware for job execution.
//
// A [Middleware] is a function that wraps a capability call. Middleware
// are composed into a chain using [Chain] and applied around each
// execution. They are applied right-to-left: the first middleware in the
// slice is the outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging]: logs job identity, duration, and classified outcome
//   - [Recover]: catches panics and converts them to SYSTEM failures
//   - [Timeout]: cancels the capability context after a fixed duration
//   - [Tracing]: wraps execution in an OpenTelemetry span
//   - [Metrics]: records per-capability duration and outcome counters
//   - [Scope]: fills job identity into the context scope for correlation
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, j *job.Job, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware
