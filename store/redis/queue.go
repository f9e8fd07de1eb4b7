package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/queue"
)

// Push appends payload to the head of the list q (LPUSH).
func (s *Store) Push(ctx context.Context, q string, payload []byte) error {
	if err := s.client.LPush(ctx, q, payload).Err(); err != nil {
		return fmt.Errorf("docworker/redis: push %s: %w", q, err)
	}
	return nil
}

// Pop blocks up to timeout for the tail of the first non-empty list in
// queues (BRPOP). Redis rounds sub-second timeouts up to one second.
func (s *Store) Pop(ctx context.Context, queues []string, timeout time.Duration) (*queue.Delivery, error) {
	res, err := s.client.BRPop(ctx, timeout, queues...).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, queue.ErrEmpty
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("docworker/redis: pop: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("docworker/redis: pop: unexpected reply of %d elements", len(res))
	}
	return &queue.Delivery{Queue: res[0], Payload: []byte(res[1])}, nil
}

// Len returns the length of the list q.
func (s *Store) Len(ctx context.Context, q string) (int64, error) {
	n, err := s.client.LLen(ctx, q).Result()
	if err != nil {
		return 0, fmt.Errorf("docworker/redis: len %s: %w", q, err)
	}
	return n, nil
}
