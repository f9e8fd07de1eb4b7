package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
)

// PushDLQ prepends the JSON encoding of entry to the list dlqName.
func (s *Store) PushDLQ(ctx context.Context, dlqName string, entry *dlq.Entry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("docworker/redis: encode dlq entry: %w", err)
	}
	if err := s.client.LPush(ctx, dlqName, b).Err(); err != nil {
		return fmt.Errorf("docworker/redis: push dlq %s: %w", dlqName, err)
	}
	return nil
}

// ListDLQ returns entries of dlqName, newest first. Entries that fail to
// decode are skipped and logged.
func (s *Store) ListDLQ(ctx context.Context, dlqName string, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	start := int64(max(0, opts.Offset))
	stop := int64(-1)
	if opts.Limit > 0 {
		stop = start + int64(opts.Limit) - 1
	}

	raws, err := s.client.LRange(ctx, dlqName, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("docworker/redis: list dlq %s: %w", dlqName, err)
	}

	entries := make([]*dlq.Entry, 0, len(raws))
	for i, raw := range raws {
		e, decErr := decodeEntry(raw)
		if decErr != nil {
			s.logger.Warn("skipping undecodable dlq entry",
				slog.String("dlq", dlqName),
				slog.Int64("index", start+int64(i)),
				slog.String("error", decErr.Error()),
			)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// GetDLQ returns the entry at index of dlqName, 0 being the newest.
func (s *Store) GetDLQ(ctx context.Context, dlqName string, index int64) (*dlq.Entry, error) {
	if index < 0 {
		return nil, dlq.ErrNotFound
	}
	raw, err := s.client.LIndex(ctx, dlqName, index).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, dlq.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docworker/redis: get dlq %s[%d]: %w", dlqName, index, err)
	}
	return decodeEntry(raw)
}

// CountDLQ returns the length of the list dlqName.
func (s *Store) CountDLQ(ctx context.Context, dlqName string) (int64, error) {
	n, err := s.client.LLen(ctx, dlqName).Result()
	if err != nil {
		return 0, fmt.Errorf("docworker/redis: count dlq %s: %w", dlqName, err)
	}
	return n, nil
}

func decodeEntry(raw string) (*dlq.Entry, error) {
	var e dlq.Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("docworker/redis: decode dlq entry: %w", err)
	}
	return &e, nil
}
