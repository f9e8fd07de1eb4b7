package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotReplayable is returned for entries whose payload is not a JSON
// object.
var ErrNotReplayable = errors.New("dlq: payload is not a JSON object")

// Replayed describes a re-enqueued entry.
type Replayed struct {
	JobID    string `json:"job_id"`
	ReplayOf string `json:"replay_of"`
	Queue    string `json:"queue"`
}

// Replay re-enqueues the entry at index of dlqName onto queueName as a new
// job. When queueName is empty the entry's origin queue is used.
func (s *Service) Replay(ctx context.Context, dlqName string, index int64, queueName string) (*Replayed, error) {
	e, err := s.store.GetDLQ(ctx, dlqName, index)
	if err != nil {
		return nil, err
	}
	if queueName == "" {
		queueName = e.QueueName
	}
	if queueName == "" {
		return nil, fmt.Errorf("dlq: entry %s has no origin queue", e.ID)
	}

	body, newID, err := RewriteForReplay(e.Payload)
	if err != nil {
		return nil, err
	}
	if err := s.queues.Push(ctx, queueName, body); err != nil {
		return nil, fmt.Errorf("dlq: replay push: %w", err)
	}
	return &Replayed{JobID: newID, ReplayOf: e.JobID, Queue: queueName}, nil
}

// RewriteForReplay replaces job_id with a new UUID and records the old one
// under replay_of. All other fields are copied verbatim.
func RewriteForReplay(payload json.RawMessage) ([]byte, string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, "", ErrNotReplayable
	}
	newID := uuid.NewString()
	if old, ok := fields["job_id"]; ok {
		fields["replay_of"] = old
	}
	idJSON, err := json.Marshal(newID)
	if err != nil {
		return nil, "", err
	}
	fields["job_id"] = idJSON
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, "", fmt.Errorf("dlq: encode replay: %w", err)
	}
	return body, newID, nil
}
