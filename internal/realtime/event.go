package realtime

import (
	"encoding/json"
	"time"

	"reefops/internal/models"
)

// Event kinds pushed to websocket clients.
const (
	EventMessage     = "message"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
	EventTyping      = "typing_state"
)

// Event is the wire payload exchanged with websocket clients.
type Event struct {
	Kind        string             `json:"kind"`
	MessageType models.MessageType `json:"messageType,omitempty"`
	ScopeID     string             `json:"scopeId,omitempty"`
	Message     *models.Message    `json:"message,omitempty"`
	UserID      string             `json:"userId,omitempty"`
	UserName    string             `json:"userName,omitempty"`
	TypingUsers []string           `json:"typingUsers,omitempty"`
	SentAt      time.Time          `json:"sentAt"`
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}
