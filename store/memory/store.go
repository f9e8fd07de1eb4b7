package memory

import (
	"context"
	"sync"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/dlq"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ledger"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/queue"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/status"
)

// Ensure Store implements every subsystem contract at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ queue.Store  = (*Store)(nil)
	_ status.Store = (*Store)(nil)
	_ ledger.Store = (*Store)(nil)
	_ dlq.Store    = (*Store)(nil)
)

type statusEntry struct {
	fields    map[string]string
	expiresAt time.Time
}

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.Mutex

	queues   map[string][][]byte
	statuses map[string]*statusEntry
	attempts map[string]int
	dlqs     map[string][]*dlq.Entry

	// pushed is closed and replaced on every Push to wake blocked pops.
	pushed chan struct{}

	now func() time.Time
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		queues:   make(map[string][][]byte),
		statuses: make(map[string]*statusEntry),
		attempts: make(map[string]int),
		dlqs:     make(map[string][]*dlq.Entry),
		pushed:   make(chan struct{}),
		now:      time.Now,
	}
}

// ──────────────────────────────────────────────────
// Lifecycle: Ping / Close
// ──────────────────────────────────────────────────

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Queue Store
// ──────────────────────────────────────────────────

// Push appends a copy of payload to queue and wakes blocked pops.
func (m *Store) Push(_ context.Context, q string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := append([]byte(nil), payload...)
	m.queues[q] = append(m.queues[q], cp)
	close(m.pushed)
	m.pushed = make(chan struct{})
	return nil
}

// Pop removes the oldest payload of the first non-empty queue, waiting up
// to timeout for one to arrive.
func (m *Store) Pop(ctx context.Context, queues []string, timeout time.Duration) (*queue.Delivery, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		m.mu.Lock()
		for _, q := range queues {
			items := m.queues[q]
			if len(items) == 0 {
				continue
			}
			payload := items[0]
			m.queues[q] = items[1:]
			m.mu.Unlock()
			return &queue.Delivery{Queue: q, Payload: payload}, nil
		}
		wake := m.pushed
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, queue.ErrEmpty
		case <-wake:
		}
	}
}

// Len returns the number of payloads waiting in queue.
func (m *Store) Len(_ context.Context, q string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.queues[q])), nil
}

// ──────────────────────────────────────────────────
// Status Store
// ──────────────────────────────────────────────────

func (m *Store) liveStatus(jobID string) *statusEntry {
	e, ok := m.statuses[jobID]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.statuses, jobID)
		return nil
	}
	return e
}

// ApplyStatus checks p against the current status and writes it.
func (m *Store) ApplyStatus(_ context.Context, jobID string, p status.Patch, ttl time.Duration) (status.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.liveStatus(jobID)
	current := status.None
	if e != nil {
		current = status.Normalize(e.fields[status.FieldStatus])
	}

	switch status.Decide(current, p.Status) {
	case status.Ignore:
		return current, nil
	case status.Block:
		return current, status.ErrTransitionBlocked
	}

	if e == nil {
		e = &statusEntry{fields: make(map[string]string)}
		m.statuses[jobID] = e
	}
	for k, v := range p.Fields() {
		e.fields[k] = v
	}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	return current, nil
}

// GetStatus returns the record of jobID.
func (m *Store) GetStatus(_ context.Context, jobID string) (*status.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.liveStatus(jobID)
	if e == nil {
		return nil, status.ErrNotFound
	}
	return status.Decode(jobID, e.fields), nil
}

// ──────────────────────────────────────────────────
// Ledger Store
// ──────────────────────────────────────────────────

// IncrAttempts increments and returns the attempt counter of jobID.
func (m *Store) IncrAttempts(_ context.Context, jobID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[jobID]++
	return m.attempts[jobID], nil
}

// Attempts returns the attempt counter of jobID.
func (m *Store) Attempts(_ context.Context, jobID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[jobID], nil
}

// ClearAttempts deletes the attempt counter of jobID.
func (m *Store) ClearAttempts(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, jobID)
	return nil
}

// ──────────────────────────────────────────────────
// DLQ Store
// ──────────────────────────────────────────────────

// PushDLQ prepends a copy of entry to dlqName.
func (m *Store) PushDLQ(_ context.Context, dlqName string, entry *dlq.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	m.dlqs[dlqName] = append([]*dlq.Entry{&cp}, m.dlqs[dlqName]...)
	return nil
}

// ListDLQ returns entries of dlqName, newest first.
func (m *Store) ListDLQ(_ context.Context, dlqName string, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.dlqs[dlqName]
	if opts.Offset > 0 {
		if opts.Offset >= len(entries) {
			return []*dlq.Entry{}, nil
		}
		entries = entries[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(entries) {
		entries = entries[:opts.Limit]
	}
	out := make([]*dlq.Entry, len(entries))
	for i, e := range entries {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// GetDLQ returns the entry at index of dlqName.
func (m *Store) GetDLQ(_ context.Context, dlqName string, index int64) (*dlq.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.dlqs[dlqName]
	if index < 0 || index >= int64(len(entries)) {
		return nil, dlq.ErrNotFound
	}
	cp := *entries[index]
	return &cp, nil
}

// CountDLQ returns the number of entries in dlqName.
func (m *Store) CountDLQ(_ context.Context, dlqName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.dlqs[dlqName])), nil
}

// ──────────────────────────────────────────────────
// Test helpers
// ──────────────────────────────────────────────────

// SetClock overrides the time source used for status expiry.
func (m *Store) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Payloads returns copies of the payloads waiting in queue, oldest first.
func (m *Store) Payloads(q string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.queues[q]))
	for i, p := range m.queues[q] {
		out[i] = append([]byte(nil), p...)
	}
	return out
}

// StatusFields returns a copy of the raw status fields of jobID.
func (m *Store) StatusFields(jobID string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.liveStatus(jobID)
	if e == nil {
		return nil
	}
	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}
