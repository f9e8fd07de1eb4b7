// Package store defines the aggregate persistence interface. Each subsystem
// (queue, status, ledger, dlq) defines its own store interface. The
// composite Store composes them all. Backends: Redis and Memory.
package store

import (
	"context"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ledger"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/queue"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/status"
)

// Store is the aggregate persistence interface.
// A single backend implements every subsystem contract.
type Store interface {
	queue.Store
	status.Store
	ledger.Store
	dlq.Store

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the store. Backends that do not own their client
	// treat it as a no-op.
	Close() error
}
