package queue

import (
	"context"
	"errors"
	"time"
)

// ErrEmpty is returned by Pop when no queue had work before the timeout.
var ErrEmpty = errors.New("queue: empty")

// Delivery is one popped payload.
type Delivery struct {
	// Queue is the queue the payload was removed from.
	Queue string
	// Payload is the body exactly as it was pushed.
	Payload []byte
}

// Store defines the queue persistence contract. Producers push at the head
// and consumers pop from the tail, so each queue is FIFO.
type Store interface {
	// Push appends payload to queue.
	Push(ctx context.Context, queue string, payload []byte) error

	// Pop atomically removes one payload from the first non-empty queue in
	// queues, waiting up to timeout. It returns ErrEmpty on timeout.
	Pop(ctx context.Context, queues []string, timeout time.Duration) (*Delivery, error)

	// Len returns the number of payloads waiting in queue.
	Len(ctx context.Context, queue string) (int64, error)
}
