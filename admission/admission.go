package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrUnknownCapability is returned when acquiring for a capability that has
// no configured limit.
var ErrUnknownCapability = errors.New("admission: unknown capability")

// Limit defines the admission policy of one capability.
type Limit struct {
	// Capability is the capability id ("ocr", "transcription").
	Capability string

	// MaxInFlight caps concurrently executing jobs. Zero means no cap.
	MaxInFlight int

	// RatePerSec is the sustained number of admissions per second. Zero
	// disables rate limiting.
	RatePerSec float64

	// Burst is the token-bucket size. Defaults to 1 if RatePerSec is set
	// but Burst is zero.
	Burst int
}

type capState struct {
	limit   Limit
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	active  atomic.Int64
}

func newCapState(l Limit) *capState {
	cs := &capState{limit: l}
	if l.MaxInFlight > 0 {
		cs.sem = semaphore.NewWeighted(int64(l.MaxInFlight))
	}
	if l.RatePerSec > 0 {
		burst := l.Burst
		if burst <= 0 {
			burst = 1
		}
		cs.limiter = rate.NewLimiter(rate.Limit(l.RatePerSec), burst)
	}
	return cs
}

// Controller holds the per-capability admission state. It is safe for
// concurrent use.
type Controller struct {
	mu   sync.RWMutex
	caps map[string]*capState
}

// New creates a Controller with the given limits. Capabilities not listed
// are rejected by Acquire.
func New(limits ...Limit) *Controller {
	c := &Controller{caps: make(map[string]*capState, len(limits))}
	for _, l := range limits {
		c.caps[l.Capability] = newCapState(l)
	}
	return c
}

// SetLimit adds a capability or replaces its limit. Permits already held
// against the previous limit are released against it.
func (c *Controller) SetLimit(l Limit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caps[l.Capability] = newCapState(l)
}

func (c *Controller) state(capability string) (*capState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cs, ok := c.caps[capability]
	return cs, ok
}

// Acquire blocks until the capability admits one more job or ctx is done.
// The returned Permit must be released on every exit path.
func (c *Controller) Acquire(ctx context.Context, capability string) (*Permit, error) {
	cs, ok := c.state(capability)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCapability, capability)
	}
	if cs.limiter != nil {
		if err := cs.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("admission: %s rate wait: %w", capability, err)
		}
	}
	if cs.sem != nil {
		if err := cs.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("admission: %s acquire: %w", capability, err)
		}
	}
	cs.active.Add(1)
	return &Permit{state: cs}, nil
}

// TryAcquire admits without waiting. It reports false when the capability
// is saturated or rate limited.
func (c *Controller) TryAcquire(capability string) (*Permit, bool) {
	cs, ok := c.state(capability)
	if !ok {
		return nil, false
	}
	// The slot is taken first so a saturated capability spends no token.
	if cs.sem != nil && !cs.sem.TryAcquire(1) {
		return nil, false
	}
	if cs.limiter != nil && !cs.limiter.Allow() {
		if cs.sem != nil {
			cs.sem.Release(1)
		}
		return nil, false
	}
	cs.active.Add(1)
	return &Permit{state: cs}, true
}

// InFlight returns the number of permits currently held for capability.
func (c *Controller) InFlight(capability string) int {
	cs, ok := c.state(capability)
	if !ok {
		return 0
	}
	return int(cs.active.Load())
}

// Limits returns the configured limits.
func (c *Controller) Limits() []Limit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Limit, 0, len(c.caps))
	for _, cs := range c.caps {
		out = append(out, cs.limit)
	}
	return out
}

// Permit is one admitted execution slot.
type Permit struct {
	state *capState
	once  sync.Once
}

// Capability returns the capability the permit was acquired for.
func (p *Permit) Capability() string { return p.state.limit.Capability }

// Release returns the slot. Calling it more than once is a no-op.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.state.active.Add(-1)
		if p.state.sem != nil {
			p.state.sem.Release(1)
		}
	})
}
