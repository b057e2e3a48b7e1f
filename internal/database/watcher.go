package database

import (
	"sync"

	"reefops/internal/models"
)

// scopeKey identifies one logical conversation channel for change
// notification.
type scopeKey struct {
	Type    models.MessageType
	ScopeID string
}

// watchRegistry is the live-query primitive: writers signal a scope key,
// and every watcher of that key receives a coalesced wake-up. Watchers
// re-run their window query on wake-up.
type watchRegistry struct {
	mu      sync.Mutex
	nextID  int64
	entries map[scopeKey]map[int64]chan struct{}
}

func newWatchRegistry() *watchRegistry {
	return &watchRegistry{entries: make(map[scopeKey]map[int64]chan struct{})}
}

func (r *watchRegistry) watch(key scopeKey) (<-chan struct{}, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	// Buffer of one so a notify during a re-query is not lost; further
	// notifies coalesce into the pending one.
	ch := make(chan struct{}, 1)

	if r.entries[key] == nil {
		r.entries[key] = make(map[int64]chan struct{})
	}
	r.entries[key][id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if watchers, ok := r.entries[key]; ok {
			delete(watchers, id)
			if len(watchers) == 0 {
				delete(r.entries, key)
			}
		}
	}
	return ch, cancel
}

func (r *watchRegistry) notify(key scopeKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.entries[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// WatchScope registers for change notifications on one conversation
// channel. The returned cancel must be called when the subscription ends.
func (d *Database) WatchScope(msgType models.MessageType, scopeID string) (<-chan struct{}, func()) {
	return d.watchers.watch(scopeKey{Type: msgType, ScopeID: scopeID})
}

func (d *Database) notifyScope(msgType models.MessageType, scopeID string) {
	d.watchers.notify(scopeKey{Type: msgType, ScopeID: scopeID})
}
