package models

import (
	"sort"
	"time"
)

// ToggleReaction applies the exact toggle semantics: an existing
// (emoji, user) entry is removed and the count decremented, deleting the
// emoji key when it reaches zero; otherwise the entry is inserted and the
// count incremented. Applying the same toggle twice is a no-op pair.
func (m *Message) ToggleReaction(userID, displayName, emoji string, at time.Time) {
	if m.Reactions == nil {
		m.Reactions = make(map[string]*Reaction)
	}

	reaction, ok := m.Reactions[emoji]
	if ok {
		if _, reacted := reaction.Users[userID]; reacted {
			delete(reaction.Users, userID)
			reaction.Count--
			if reaction.Count <= 0 {
				delete(m.Reactions, emoji)
			}
			return
		}
	} else {
		reaction = &Reaction{Users: make(map[string]ReactionUser)}
		m.Reactions[emoji] = reaction
	}

	reaction.Users[userID] = ReactionUser{Name: displayName, Timestamp: at}
	reaction.Count = len(reaction.Users)
}

// ReceiptEntry is one recipient in a read-receipt summary.
type ReceiptEntry struct {
	UserID string     `json:"userId"`
	Name   string     `json:"name"`
	ReadAt *time.Time `json:"readAt,omitempty"`
}

// ReceiptSummary partitions a broadcast's recipients into readers and
// non-readers for display.
type ReceiptSummary struct {
	Read   []ReceiptEntry `json:"read"`
	Unread []ReceiptEntry `json:"unread"`
}

// SummarizeReceipts partitions the broadcast's recipient snapshot by read
// state. Readers are ordered most-recent-first by ReadAt; non-readers are
// ordered by name for a stable listing.
func (m *Message) SummarizeReceipts() ReceiptSummary {
	var summary ReceiptSummary
	for userID, receipt := range m.ReadStatus {
		entry := ReceiptEntry{UserID: userID, Name: receipt.Name, ReadAt: receipt.ReadAt}
		if receipt.Read {
			summary.Read = append(summary.Read, entry)
		} else {
			summary.Unread = append(summary.Unread, entry)
		}
	}
	sort.Slice(summary.Read, func(i, j int) bool {
		a, b := summary.Read[i].ReadAt, summary.Read[j].ReadAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		}
		return summary.Read[i].UserID < summary.Read[j].UserID
	})
	sort.Slice(summary.Unread, func(i, j int) bool {
		if summary.Unread[i].Name != summary.Unread[j].Name {
			return summary.Unread[i].Name < summary.Unread[j].Name
		}
		return summary.Unread[i].UserID < summary.Unread[j].UserID
	})
	return summary
}
