// Package runtime owns the process-wide presence state and the supervised
// delivery workers. It contains no business rules.
package runtime

import (
	"sync"

	"github.com/Trabajadores202/work-flow-connect-80-89/contract"
)

// Registry maps a principal id to the set of its currently open channel
// sinks. It is the single source of truth for "is X reachable now".
//
// A principal is present iff its sink set is non-empty. The registry is
// mutated only by channel open/close, never by domain event handlers.
// All operations are safe under arbitrary concurrent invocation; mutations
// to a single principal's entry are serialized by the registry lock, so
// two devices of the same principal connecting and disconnecting
// concurrently cannot lose updates.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[contract.EventSink]struct{}
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]map[contract.EventSink]struct{})}
}

// Register adds the sink to the principal's entry. Registering the same
// sink twice is a no-op.
func (r *Registry) Register(principalID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.channels[principalID]
	if !ok {
		set = make(map[contract.EventSink]struct{})
		r.channels[principalID] = set
	}
	set[sink] = struct{}{}
}

// Unregister removes the sink and reports whether the principal
// transitioned to absent. Empty sets are removed so the map never leaks
// entries for long-gone principals.
func (r *Registry) Unregister(principalID string, sink contract.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.channels[principalID]
	if !ok {
		return false
	}
	if _, exists := set[sink]; !exists {
		return false
	}
	delete(set, sink)
	if len(set) == 0 {
		delete(r.channels, principalID)
		return true
	}
	return false
}

// ChannelsOf returns the open sinks of a principal, empty if absent.
func (r *Registry) ChannelsOf(principalID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.channels[principalID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(set))
	for sink := range set {
		sinks = append(sinks, sink)
	}
	return sinks
}

func (r *Registry) IsPresent(principalID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[principalID]) > 0
}

func (r *Registry) AllPresent() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	return ids
}
