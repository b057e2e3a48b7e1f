package realtime

import (
	"time"

	"reefops/internal/metrics"
	"reefops/internal/models"

	"github.com/sirupsen/logrus"
)

// Hub routes events to connected websocket clients. A user may hold several
// connections at once (multiple tabs or devices); each gets its own Client.
type Hub struct {
	logger *logrus.Logger
	typing *TypingRegistry

	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	typingCh   chan typingView

	// userID -> set of live connections. Owned by the Run goroutine.
	clients map[string]map[*Client]bool
}

type delivery struct {
	userIDs []string
	payload []byte
}

type typingView struct {
	msgType models.MessageType
	scopeID string
}

func NewHub(logger *logrus.Logger, typing *TypingRegistry) *Hub {
	return &Hub{
		logger:     logger,
		typing:     typing,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 64),
		typingCh:   make(chan typingView, 64),
		clients:    make(map[string]map[*Client]bool),
	}
}

// Run owns the client map. It must be started once, before any connection is
// accepted, and stops when the context given to the callers ends the process.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			h.gaugeClients()

		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, ok := set[client]; ok {
				delete(set, client)
				close(client.send)
				if len(set) == 0 {
					delete(h.clients, client.userID)
					// The pump may have died mid-typing; stop showing the
					// user as typing everywhere.
					h.typing.ClearUser(client.userID)
				}
			}
			h.gaugeClients()

		case d := <-h.deliver:
			for _, userID := range d.userIDs {
				set, ok := h.clients[userID]
				if !ok {
					continue
				}
				h.push(set, userID, d.payload)
			}

		case view := <-h.typingCh:
			// Each viewer gets the active typists minus themselves. Clients
			// not looking at this view filter on messageType and scopeId.
			now := time.Now().UTC()
			for userID, set := range h.clients {
				payload, err := Event{
					Kind:        EventTyping,
					MessageType: view.msgType,
					ScopeID:     view.scopeID,
					TypingUsers: h.typing.ActiveUsers(view.msgType, view.scopeID, userID),
					SentAt:      now,
				}.encode()
				if err != nil {
					h.logger.WithError(err).Error("failed to encode typing event")
					break
				}
				h.push(set, userID, payload)
			}
		}
	}
}

// push fans a payload out to every connection in set, dropping clients whose
// send buffer is full. Only called from the Run goroutine.
func (h *Hub) push(set map[*Client]bool, userID string, payload []byte) {
	for client := range set {
		select {
		case client.send <- payload:
		default:
			// Slow or broken client, drop it.
			close(client.send)
			delete(set, client)
			h.logger.WithField("user_id", userID).Warn("dropped slow websocket client")
		}
	}
}

// BroadcastTyping pushes the current typing roster for one view to every
// connected client.
func (h *Hub) BroadcastTyping(msgType models.MessageType, scopeID string) {
	select {
	case h.typingCh <- typingView{msgType: msgType, scopeID: scopeID}:
	default:
		// Typing is advisory; drop the update rather than block the pump.
	}
}

// SendToUsers pushes an event to every connection of the listed users.
func (h *Hub) SendToUsers(userIDs []string, event Event) {
	payload, err := event.encode()
	if err != nil {
		h.logger.WithError(err).Error("failed to encode realtime event")
		return
	}
	h.deliver <- delivery{userIDs: userIDs, payload: payload}
}

// PushMessage delivers a new-message event to the given users.
func (h *Hub) PushMessage(userIDs []string, msg *models.Message) {
	h.SendToUsers(userIDs, Event{
		Kind:        EventMessage,
		MessageType: msg.Type,
		ScopeID:     msg.ScopeID,
		Message:     msg,
		SentAt:      msg.Timestamp,
	})
}

func (h *Hub) gaugeClients() {
	total := 0
	for _, set := range h.clients {
		total += len(set)
	}
	metrics.SetGauge(metrics.WebsocketClients, float64(total), nil)
}
