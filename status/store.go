package status

import (
	"context"
	"time"
)

// Store defines the status persistence contract.
type Store interface {
	// ApplyStatus atomically checks p against the current status of jobID
	// and writes it, refreshing the record TTL. It returns the status the
	// record had before the write. A rejected write returns
	// ErrTransitionBlocked; an ignored idempotent rewrite returns nil and
	// writes nothing.
	ApplyStatus(ctx context.Context, jobID string, p Patch, ttl time.Duration) (Status, error)

	// GetStatus returns the record of jobID or ErrNotFound.
	GetStatus(ctx context.Context, jobID string) (*Record, error)
}
