// Package ext defines the extension system for the worker.
//
// Extensions are notified of lifecycle events and can react to them:
// recording metrics, writing audit logs, notifying a frontend, etc.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, j *job.Job, res *job.Result, elapsed time.Duration) error {
//	    log.Printf("job %s completed in %s", j.ID, elapsed)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobClaimed]: job was marked PROCESSING and is about to run
//   - [JobCompleted]: job finished successfully
//   - [JobRetrying]: job failed but will be retried
//   - [JobDeadLettered]: job was written to its dead-letter queue
//   - [JobCancelled]: job ended CANCELLED
//
// # Other Hooks
//
//   - [Shutdown]: the worker pool is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
