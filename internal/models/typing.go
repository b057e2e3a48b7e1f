package models

import "time"

// TypingStaleness is how long a typing entry stays valid without a fresh
// update. Entries older than this are treated as not-typing even if no
// explicit stop ever arrived, which covers abrupt disconnects.
const TypingStaleness = 10 * time.Second

// TypingKey identifies one typing-presence channel: a conversation view
// scoped by kind, id and message type (tab).
type TypingKey struct {
	ScopeKind   ScopeKind   `json:"scopeKind"`
	ScopeID     string      `json:"scopeId"`
	MessageType MessageType `json:"messageType"`
}

// TypingStatus is one user's typing state within a channel.
type TypingStatus struct {
	IsTyping  bool      `json:"isTyping"`
	Timestamp time.Time `json:"timestamp"`
}

// Active reports whether the entry still counts as typing at time now.
func (s TypingStatus) Active(now time.Time) bool {
	return s.IsTyping && now.Sub(s.Timestamp) <= TypingStaleness
}
