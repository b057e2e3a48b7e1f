package service

import (
	"sync"
	"time"

	"reefops/internal/constants"
)

// SubscriptionManager holds at most one live subscription per view key and
// guarantees the old one is torn down before a replacement is established.
// Replacements are debounced: rapid successive calls for the same key only
// establish the last one, after a short quiescence window.
type SubscriptionManager struct {
	mu      sync.Mutex
	entries map[string]*subscriptionEntry
	settle  time.Duration
}

type subscriptionEntry struct {
	teardown func()
	pending  *time.Timer
	gen      uint64
}

func NewSubscriptionManager() *SubscriptionManager {
	return &SubscriptionManager{
		entries: make(map[string]*subscriptionEntry),
		settle:  constants.SubscriptionSettleWindow,
	}
}

// Replace schedules establish to run for key once the settle window passes
// with no further Replace calls for that key. Any prior subscription on the
// key is torn down immediately, so there is never a moment with two live
// subscriptions for one view.
func (m *SubscriptionManager) Replace(key string, establish func() (func(), error)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		entry = &subscriptionEntry{}
		m.entries[key] = entry
	}

	if entry.teardown != nil {
		entry.teardown()
		entry.teardown = nil
	}
	if entry.pending != nil {
		entry.pending.Stop()
		entry.pending = nil
	}

	entry.gen++
	gen := entry.gen
	entry.pending = time.AfterFunc(m.settle, func() {
		teardown, err := establish()
		if err != nil {
			return
		}

		m.mu.Lock()
		current, ok := m.entries[key]
		if !ok || current.gen != gen {
			// A newer Replace or a Cancel won the race.
			m.mu.Unlock()
			teardown()
			return
		}
		current.teardown = teardown
		current.pending = nil
		m.mu.Unlock()
	})
}

// Cancel tears down the subscription for key, if any, including one still
// waiting out its settle window.
func (m *SubscriptionManager) Cancel(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return
	}
	if entry.pending != nil {
		entry.pending.Stop()
	}
	if entry.teardown != nil {
		entry.teardown()
	}
	delete(m.entries, key)
}

// CancelAll tears down every live and pending subscription.
func (m *SubscriptionManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.entries {
		if entry.pending != nil {
			entry.pending.Stop()
		}
		if entry.teardown != nil {
			entry.teardown()
		}
		delete(m.entries, key)
	}
}
