package realtime

import (
	"context"
	"sync"
	"time"

	"reefops/internal/constants"
	"reefops/internal/models"
)

type typingEntry struct {
	name   string
	status models.TypingStatus
}

// TypingRegistry tracks who is typing in which conversation view. Entries
// expire after models.TypingStaleness without a fresh update, so a reader
// never shows a stale indicator for longer than that even when the writer
// disconnected without sending a stop.
type TypingRegistry struct {
	mu      sync.RWMutex
	entries map[models.TypingKey]map[string]typingEntry
	now     func() time.Time
}

func NewTypingRegistry() *TypingRegistry {
	return &TypingRegistry{
		entries: make(map[models.TypingKey]map[string]typingEntry),
		now:     time.Now,
	}
}

// Set records a typing start or stop for a user in one view.
func (r *TypingRegistry) Set(msgType models.MessageType, scopeID, userID, name string, isTyping bool) {
	_, kind, err := msgType.Classify()
	if err != nil {
		return
	}
	key := models.TypingKey{ScopeKind: kind, ScopeID: scopeID, MessageType: msgType}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !isTyping {
		if users, ok := r.entries[key]; ok {
			delete(users, userID)
			if len(users) == 0 {
				delete(r.entries, key)
			}
		}
		return
	}

	users, ok := r.entries[key]
	if !ok {
		users = make(map[string]typingEntry)
		r.entries[key] = users
	}
	users[userID] = typingEntry{
		name:   name,
		status: models.TypingStatus{IsTyping: true, Timestamp: r.now()},
	}
}

// ActiveUsers returns the display names of users currently typing in a view,
// excluding the requesting user. Stale entries are filtered out.
func (r *TypingRegistry) ActiveUsers(msgType models.MessageType, scopeID, exceptUserID string) []string {
	_, kind, err := msgType.Classify()
	if err != nil {
		return nil
	}
	key := models.TypingKey{ScopeKind: kind, ScopeID: scopeID, MessageType: msgType}
	now := r.now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	users, ok := r.entries[key]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(users))
	for userID, entry := range users {
		if userID == exceptUserID {
			continue
		}
		if entry.status.Active(now) {
			names = append(names, entry.name)
		}
	}
	return names
}

// ClearUser removes every typing entry for a user, across all views. Called
// when the user's last connection goes away.
func (r *TypingRegistry) ClearUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, users := range r.entries {
		delete(users, userID)
		if len(users) == 0 {
			delete(r.entries, key)
		}
	}
}

// Sweep periodically evicts stale entries so the map does not grow without
// bound. Runs until ctx is done.
func (r *TypingRegistry) Sweep(ctx context.Context) {
	ticker := time.NewTicker(constants.TypingSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evictStale()
		}
	}
}

func (r *TypingRegistry) evictStale() {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, users := range r.entries {
		for userID, entry := range users {
			if !entry.status.Active(now) {
				delete(users, userID)
			}
		}
		if len(users) == 0 {
			delete(r.entries, key)
		}
	}
}
