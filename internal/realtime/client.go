package realtime

import (
	"encoding/json"
	"time"

	"reefops/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 5120
)

// Client is one websocket connection belonging to an authenticated user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	name   string
}

// NewClient wires a freshly upgraded connection into the hub and starts its
// read and write pumps.
func NewClient(hub *Hub, conn *websocket.Conn, userID, name string) *Client {
	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		name:   name,
	}
	hub.register <- c
	go c.writePump()
	go c.readPump()
	return c
}

// readPump consumes client events. The only client-to-server traffic is
// typing presence; everything else arrives over the HTTP API.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var incoming struct {
			Kind        string             `json:"kind"`
			MessageType models.MessageType `json:"messageType"`
			ScopeID     string             `json:"scopeId"`
		}
		if err := json.Unmarshal(raw, &incoming); err != nil {
			continue
		}

		switch incoming.Kind {
		case EventTypingStart:
			c.hub.typing.Set(incoming.MessageType, incoming.ScopeID, c.userID, c.name, true)
			c.hub.BroadcastTyping(incoming.MessageType, incoming.ScopeID)
		case EventTypingStop:
			c.hub.typing.Set(incoming.MessageType, incoming.ScopeID, c.userID, c.name, false)
			c.hub.BroadcastTyping(incoming.MessageType, incoming.ScopeID)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(payload)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
