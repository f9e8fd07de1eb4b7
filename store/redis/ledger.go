package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// IncrAttempts atomically increments the attempt counter of jobID.
func (s *Store) IncrAttempts(ctx context.Context, jobID string) (int, error) {
	n, err := s.client.Incr(ctx, attemptsKey(jobID)).Result()
	if err != nil {
		return 0, fmt.Errorf("docworker/redis: incr attempts %s: %w", jobID, err)
	}
	return int(n), nil
}

// Attempts returns the attempt counter of jobID, 0 if unset.
func (s *Store) Attempts(ctx context.Context, jobID string) (int, error) {
	n, err := s.client.Get(ctx, attemptsKey(jobID)).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("docworker/redis: get attempts %s: %w", jobID, err)
	}
	return n, nil
}

// ClearAttempts deletes the attempt counter of jobID.
func (s *Store) ClearAttempts(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, attemptsKey(jobID)).Err(); err != nil {
		return fmt.Errorf("docworker/redis: clear attempts %s: %w", jobID, err)
	}
	return nil
}
