// Package capability defines the execution boundary between the
// orchestrator and the engines that do the actual OCR or transcription.
//
// A Capability receives a parsed job and a context that is cancelled when
// the job is cancelled or the worker shuts down. It returns a result or an
// error; errors are classified by the fault package at the executor
// boundary, so a capability may return either a *fault.Error or any plain
// error.
package capability

import (
	"context"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
)

// Well-known capability ids.
const (
	OCR           = "ocr"
	Transcription = "transcription"
)

// Capability executes one job.
type Capability interface {
	Execute(ctx context.Context, j *job.Job) (*job.Result, error)
}

// Func adapts a function to Capability.
type Func func(ctx context.Context, j *job.Job) (*job.Result, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, j *job.Job) (*job.Result, error) {
	return f(ctx, j)
}

// ProgressFunc receives stage and percentage updates from a running
// capability.
type ProgressFunc func(ctx context.Context, stage string, pct int)

type progressKey struct{}

// WithProgress returns a context carrying fn.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// Report forwards a progress update to the reporter in ctx, if any.
func Report(ctx context.Context, stage string, pct int) {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		fn(ctx, stage, pct)
	}
}
