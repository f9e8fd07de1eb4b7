package route

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/capability"
)

// ErrUnregistered is returned when a job routes to a capability that has
// no implementation.
var ErrUnregistered = errors.New("route: capability not registered")

// Registry maps capability ids to implementations.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]capability.Capability
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]capability.Capability)}
}

// Register adds or replaces the capability for id.
func (r *Registry) Register(id string, c capability.Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[id] = c
}

// Get returns the capability for id.
func (r *Registry) Get(id string) (capability.Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnregistered, id)
	}
	return c, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.caps))
	for id := range r.caps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.caps)
}
