package notify

import (
	"sync"

	"taskflow-backend/internal/types"
)

// Registry indexes live event subscribers by user ID. It only indexes
// channels; each channel's lifetime is owned by the connection handler that
// subscribed it, and must be released with the returned cancel func.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]map[chan types.TaskEvent]struct{}
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]map[chan types.TaskEvent]struct{})}
}

// Subscribe registers a buffered event channel for the user and returns it
// with a cancel func the caller must invoke when the connection ends.
func (r *Registry) Subscribe(userID string) (<-chan types.TaskEvent, func()) {
	ch := make(chan types.TaskEvent, 16)
	r.mu.Lock()
	if r.subs[userID] == nil {
		r.subs[userID] = make(map[chan types.TaskEvent]struct{})
	}
	r.subs[userID][ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if set, ok := r.subs[userID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(r.subs, userID)
			}
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of the user. Sends are
// non-blocking: a slow subscriber drops events instead of stalling the
// mutation path.
func (r *Registry) Publish(userID string, ev types.TaskEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ch := range r.subs[userID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many channels are registered for a user.
func (r *Registry) SubscriberCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[userID])
}
