// Package ledger decides whether a failed job is retried or dead-lettered.
//
// Each job has a monotonically increasing attempt counter, incremented
// atomically when the job is claimed. A failure is retried while
// attempts < budget, where the budget comes from the failure's recovery
// category (or a per-type override). VALIDATION and permanent failures
// never retry.
package ledger

import (
	"context"
	"strings"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
)

// Category is the recovery class of a failure.
type Category string

const (
	// Transient covers infrastructure, rate-limit and model failures.
	Transient Category = "TRANSIENT_INFRA"
	// Media covers undecodable or missing input.
	Media Category = "INPUT_MEDIA"
	// Default covers everything else.
	Default Category = "UNKNOWN_OR_FATAL"
)

// Budget bounds.
const (
	MinBudget = 0
	MaxBudget = 10
)

// Budgets holds the maximum total attempts per category.
type Budgets struct {
	Transient int
	Media     int
	Default   int

	// ByType overrides the category budget for a failure type.
	ByType map[fault.Type]int
}

// DefaultBudgets returns the production budgets.
func DefaultBudgets() Budgets {
	return Budgets{Transient: 3, Media: 1, Default: 2}
}

// Classify returns the recovery category of a failure.
func Classify(fe *fault.Error) Category {
	switch strings.ToUpper(fe.Code) {
	case fault.CodeInfraRedis, fault.CodeInfraStorage, fault.CodeRateLimitExceeded:
		return Transient
	case fault.CodeMediaDecodeFailed, fault.CodeInputNotFound:
		return Media
	}
	if fe.Type == fault.Model {
		return Transient
	}
	return Default
}

// For returns the budget that applies to fe.
func (b Budgets) For(fe *fault.Error) int {
	if n, ok := b.ByType[fe.Type]; ok {
		return max(0, n)
	}
	switch Classify(fe) {
	case Transient:
		return max(0, b.Transient)
	case Media:
		return max(0, b.Media)
	default:
		return max(0, b.Default)
	}
}

// Action is what happens to a failed job.
type Action string

const (
	Retry      Action = "retry_with_backoff"
	DeadLetter Action = "fail_fast_dlq"
)

// Decision is the outcome of Decide.
type Decision struct {
	Action      Action
	Category    Category
	Attempts    int
	Budget      int
	MaxAttempts int
}

// Retry reports whether the job goes back onto its queue.
func (d Decision) Retry() bool { return d.Action == Retry }

// Decide applies the budgets to a failure observed after attempts claims.
func (b Budgets) Decide(fe *fault.Error, attempts int) Decision {
	attempts = max(0, attempts)
	d := Decision{
		Category: Classify(fe),
		Attempts: attempts,
		Action:   DeadLetter,
	}
	if fe.Terminal() {
		d.MaxAttempts = max(1, attempts)
		return d
	}
	d.Budget = b.For(fe)
	d.MaxAttempts = max(1, d.Budget)
	if attempts < d.Budget {
		d.Action = Retry
	}
	return d
}

// Store defines the attempt counter contract.
type Store interface {
	// IncrAttempts atomically increments and returns the counter of jobID.
	IncrAttempts(ctx context.Context, jobID string) (int, error)

	// Attempts returns the current counter of jobID, 0 if unset.
	Attempts(ctx context.Context, jobID string) (int, error)

	// ClearAttempts deletes the counter of jobID.
	ClearAttempts(ctx context.Context, jobID string) error
}
