package dlq

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no entry exists at the requested index.
var ErrNotFound = errors.New("dlq: entry not found")

// ListOpts controls pagination for DLQ list queries. Index 0 is the most
// recently dead-lettered entry.
type ListOpts struct {
	// Limit is the maximum number of entries to return. Zero means no limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
}

// Store defines the persistence contract for dead-letter queues. Each DLQ
// is a named list.
type Store interface {
	// PushDLQ prepends entry to the DLQ named dlqName.
	PushDLQ(ctx context.Context, dlqName string, entry *Entry) error

	// ListDLQ returns entries of dlqName, newest first.
	ListDLQ(ctx context.Context, dlqName string, opts ListOpts) ([]*Entry, error)

	// GetDLQ returns the entry at index of dlqName or ErrNotFound.
	GetDLQ(ctx context.Context, dlqName string, index int64) (*Entry, error)

	// CountDLQ returns the number of entries in dlqName.
	CountDLQ(ctx context.Context, dlqName string) (int64, error)
}
