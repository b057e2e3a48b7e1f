package models

import (
	"fmt"
	"time"
)

// MessageType classifies a message into one of the seven conversation
// channels. The value is immutable after creation.
type MessageType string

const (
	TypeChat             MessageType = "chat"
	TypeCourseDiscussion MessageType = "course_discussion"
	TypeCoursePrivate    MessageType = "course_private"
	TypeCourseBroadcast  MessageType = "course_broadcast"
	TypeTripDiscussion   MessageType = "trip_discussion"
	TypeTripPrivate      MessageType = "trip_private"
	TypeTripBroadcast    MessageType = "trip_broadcast"
)

// Family groups message types by their authorization rule.
type Family string

const (
	FamilyDiscussion Family = "discussion"
	FamilyBroadcast  Family = "broadcast"
	FamilyPrivate    Family = "private"
)

// ScopeKind identifies which kind of conversation a message belongs to.
type ScopeKind string

const (
	ScopeChat   ScopeKind = "chat"
	ScopeCourse ScopeKind = "course"
	ScopeTrip   ScopeKind = "trip"
)

// Classify resolves a message type into its family and scope kind.
// This is the single place the taxonomy is interpreted; callers carry the
// derived values instead of re-inspecting the type string.
func (t MessageType) Classify() (Family, ScopeKind, error) {
	switch t {
	case TypeChat:
		return FamilyDiscussion, ScopeChat, nil
	case TypeCourseDiscussion:
		return FamilyDiscussion, ScopeCourse, nil
	case TypeCoursePrivate:
		return FamilyPrivate, ScopeCourse, nil
	case TypeCourseBroadcast:
		return FamilyBroadcast, ScopeCourse, nil
	case TypeTripDiscussion:
		return FamilyDiscussion, ScopeTrip, nil
	case TypeTripPrivate:
		return FamilyPrivate, ScopeTrip, nil
	case TypeTripBroadcast:
		return FamilyBroadcast, ScopeTrip, nil
	default:
		return "", "", fmt.Errorf("unknown message type: %q", t)
	}
}

// IsValid reports whether t is one of the seven known variants.
func (t MessageType) IsValid() bool {
	_, _, err := t.Classify()
	return err == nil
}

// FileAttachment describes an uploaded file carried by a message.
type FileAttachment struct {
	URL       string `json:"url"`
	Path      string `json:"path"`
	Name      string `json:"name"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// ReadReceipt is one recipient's read state on a broadcast message.
// The Name is a snapshot taken when the broadcast was created.
type ReadReceipt struct {
	Read   bool       `json:"read"`
	ReadAt *time.Time `json:"readAt,omitempty"`
	Name   string     `json:"name"`
}

// ReactionUser records one user's reaction with the display name they had
// at the time they reacted.
type ReactionUser struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Reaction aggregates all users who reacted with one emoji.
// Count always equals len(Users).
type Reaction struct {
	Count int                     `json:"count"`
	Users map[string]ReactionUser `json:"users"`
}

// ThreadInfo links a reply into its thread. RootMessageID is invariant
// across the whole thread regardless of depth.
type ThreadInfo struct {
	RootMessageID string `json:"rootMessageId"`
	Level         int    `json:"level"`
}

// EditRecord is one entry in a message's edit history.
type EditRecord struct {
	PreviousText string    `json:"previousText"`
	EditedAt     time.Time `json:"editedAt"`
	EditedBy     string    `json:"editedBy"`
}

// Message is the central messaging document. Type and ScopeID are never
// mutated after creation; Timestamp is server-assigned and is the
// authoritative ordering key.
type Message struct {
	ID         string      `json:"id"`
	Type       MessageType `json:"type"`
	ScopeID    string      `json:"scopeId"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderName"`
	Text       string      `json:"text"`

	Attachment *FileAttachment `json:"fileAttachment,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`

	// RecipientID is set only for *_private messages.
	RecipientID string `json:"recipientId,omitempty"`

	// ReadBy tracks readers of non-broadcast messages.
	ReadBy []string `json:"readBy,omitempty"`

	// Broadcast read tracking. ReadStatus keys are fixed at creation to the
	// recipient snapshot and never change afterward.
	ReadStatus      map[string]ReadReceipt `json:"readStatus,omitempty"`
	ReadCount       int                    `json:"readCount,omitempty"`
	TotalRecipients int                    `json:"totalRecipients,omitempty"`

	DeletedFor []string             `json:"deletedFor,omitempty"`
	Reactions  map[string]*Reaction `json:"reactions,omitempty"`

	ParentMessageID string      `json:"parentMessageId,omitempty"`
	ThreadInfo      *ThreadInfo `json:"threadInfo,omitempty"`

	// Denormalized reply counters on the direct parent.
	ReplyCount  int        `json:"replyCount,omitempty"`
	LastReplyAt *time.Time `json:"lastReplyAt,omitempty"`

	// Thread-wide counters kept on the root when it differs from the parent.
	TotalThreadReplies int        `json:"totalThreadReplies,omitempty"`
	LastThreadReplyAt  *time.Time `json:"lastThreadReplyAt,omitempty"`

	IsEdited     bool         `json:"isEdited,omitempty"`
	LastEditedAt *time.Time   `json:"lastEditedAt,omitempty"`
	EditHistory  []EditRecord `json:"editHistory,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsBroadcast reports whether the message belongs to a broadcast channel.
func (m *Message) IsBroadcast() bool {
	f, _, err := m.Type.Classify()
	return err == nil && f == FamilyBroadcast
}

// IsRoot reports whether the message starts a conversation entry rather
// than replying to one.
func (m *Message) IsRoot() bool {
	return m.ParentMessageID == ""
}

// IsDeletedFor reports whether the message is tombstoned for the user.
func (m *Message) IsDeletedFor(userID string) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// MarkReadBy adds userID to ReadBy. Returns false if already present.
func (m *Message) MarkReadBy(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return false
		}
	}
	m.ReadBy = append(m.ReadBy, userID)
	return true
}

// MarkBroadcastRead flips the recipient's receipt to read and bumps
// ReadCount on the first transition only. Returns false when the user is
// not a recipient or had already read the broadcast.
func (m *Message) MarkBroadcastRead(userID string, at time.Time) bool {
	receipt, ok := m.ReadStatus[userID]
	if !ok || receipt.Read {
		return false
	}
	receipt.Read = true
	receipt.ReadAt = &at
	m.ReadStatus[userID] = receipt
	m.ReadCount++
	return true
}

// CanEdit reports whether editorID may edit the message at time now.
// Editing is restricted to the sender, to non-broadcast messages, and to a
// window measured from the original send time.
func (m *Message) CanEdit(editorID string, now time.Time, window time.Duration) error {
	if m.SenderID != editorID {
		return fmt.Errorf("only the sender may edit a message")
	}
	if m.IsBroadcast() {
		return fmt.Errorf("broadcast messages cannot be edited")
	}
	if now.Sub(m.Timestamp) > window {
		return fmt.Errorf("edit window of %s has expired", window)
	}
	return nil
}

// RecordEdit appends the current text to the edit history and replaces it.
func (m *Message) RecordEdit(newText, editorID string, at time.Time) {
	m.EditHistory = append(m.EditHistory, EditRecord{
		PreviousText: m.Text,
		EditedAt:     at,
		EditedBy:     editorID,
	})
	m.Text = newText
	m.IsEdited = true
	m.LastEditedAt = &at
}
