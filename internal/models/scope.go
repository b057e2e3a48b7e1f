package models

import "time"

// User is a staff member or customer account. DisplayName is resolved at
// message send time and snapshotted onto the message.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Chat is a buddy conversation between two (or more) users. Participants
// is the creation-time membership; ActiveParticipants shrinks as users
// leave, and the chat is purged when it empties.
type Chat struct {
	ID                 string    `json:"id"`
	Participants       []string  `json:"participants"`
	ActiveParticipants []string  `json:"activeParticipants"`
	CreatedAt          time.Time `json:"createdAt"`
}

// HasActiveParticipant reports whether userID is still in the chat.
func (c *Chat) HasActiveParticipant(userID string) bool {
	for _, id := range c.ActiveParticipants {
		if id == userID {
			return true
		}
	}
	return false
}

// Course is a dive course scope. The instructor is the designated leader
// for broadcast and private channels.
type Course struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	InstructorID string   `json:"instructorId"`
	StudentIDs   []string `json:"studentIds"`
	AssistantIDs []string `json:"assistantIds"`
}

// MemberIDs returns every current member of the course, instructor
// included.
func (c *Course) MemberIDs() []string {
	members := make([]string, 0, len(c.StudentIDs)+len(c.AssistantIDs)+1)
	members = append(members, c.InstructorID)
	members = append(members, c.StudentIDs...)
	members = append(members, c.AssistantIDs...)
	return members
}

// IsMember reports whether userID is a student, assistant or the
// instructor of the course.
func (c *Course) IsMember(userID string) bool {
	for _, id := range c.MemberIDs() {
		if id == userID {
			return true
		}
	}
	return false
}

// Trip is a dive trip scope led by a trip leader.
type Trip struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	LeaderID       string   `json:"leaderId"`
	ParticipantIDs []string `json:"participantIds"`
}

// MemberIDs returns the leader and all participants.
func (t *Trip) MemberIDs() []string {
	members := make([]string, 0, len(t.ParticipantIDs)+1)
	members = append(members, t.LeaderID)
	members = append(members, t.ParticipantIDs...)
	return members
}

// IsMember reports whether userID is the leader or a participant.
func (t *Trip) IsMember(userID string) bool {
	for _, id := range t.MemberIDs() {
		if id == userID {
			return true
		}
	}
	return false
}

// Notification is one best-effort fan-out record produced by a send.
type Notification struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	MessageID   string    `json:"messageId"`
	MessageType string    `json:"messageType"`
	ScopeID     string    `json:"scopeId"`
	SenderName  string    `json:"senderName"`
	Preview     string    `json:"preview"`
	CreatedAt   time.Time `json:"createdAt"`
	Seen        bool      `json:"seen"`
}
