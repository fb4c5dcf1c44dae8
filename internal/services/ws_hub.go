package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsSendBuffer = 64
)

// Server event types
const (
	EventCounts        = "feed.counts"
	EventConversations = "feed.conversations"
	EventMessages      = "feed.messages"
	EventNewMatches    = "feed.new_matches"
	EventError         = "error"
)

// WSMessage represents a WebSocket message in either direction
type WSMessage struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp,omitempty"`
	MatchID   *int64          `json:"match_id,omitempty"`
	Message   string          `json:"message,omitempty"`
	Data      interface{}     `json:"data,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// WSClient is one live connection of a user
type WSClient struct {
	ID     string
	UserID int64
	conn   *websocket.Conn
	send   chan []byte
	hub    *WSHub

	mu     sync.Mutex
	closed bool
}

// WSHub manages WebSocket connections. A user may be connected from several
// devices at once; every event goes to all of them.
type WSHub struct {
	mu          sync.RWMutex
	connections map[int64]map[string]*WSClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[int64]map[string]*WSClient),
	}
}

// Register registers a new WebSocket connection for a user and starts its writer
func (h *WSHub) Register(userID int64, conn *websocket.Conn) *WSClient {
	client := &WSClient{
		ID:     uuid.New().String(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, wsSendBuffer),
		hub:    h,
	}

	h.mu.Lock()
	if h.connections[userID] == nil {
		h.connections[userID] = make(map[string]*WSClient)
	}
	h.connections[userID][client.ID] = client
	h.mu.Unlock()

	go client.writePump()

	log.Info().Int64("user_id", userID).Str("conn_id", client.ID).Msg("WebSocket connection registered")
	return client
}

// Unregister removes a connection and closes it
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	if conns, ok := h.connections[client.UserID]; ok {
		if _, ok := conns[client.ID]; ok {
			delete(conns, client.ID)
			if len(conns) == 0 {
				delete(h.connections, client.UserID)
			}
			log.Info().Int64("user_id", client.UserID).Str("conn_id", client.ID).Msg("WebSocket connection unregistered")
		}
	}
	h.mu.Unlock()

	client.close()
}

// SendToUser sends a message to every connection of a user
func (h *WSHub) SendToUser(userID int64, message WSMessage) error {
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.connections[userID]))
	for _, c := range h.connections[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return fmt.Errorf("user %d is not connected", userID)
	}

	for _, c := range clients {
		if !c.enqueue(data) {
			log.Warn().Int64("user_id", userID).Str("conn_id", c.ID).Msg("WebSocket send buffer full, dropping connection")
			h.Unregister(c)
		}
	}
	return nil
}

// Publish delivers a feed event, ignoring users without a live connection
func (h *WSHub) Publish(userID int64, message WSMessage) {
	if !h.IsOnline(userID) {
		return
	}
	if err := h.SendToUser(userID, message); err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Str("type", message.Type).Msg("Feed event not delivered")
	}
}

// IsOnline checks if a user has at least one connection
func (h *WSHub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID]) > 0
}

// Connections returns the number of live connections of a user
func (h *WSHub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// CloseUser drops every connection of a user, as on sign-out
func (h *WSHub) CloseUser(userID int64) {
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.connections[userID]))
	for _, c := range h.connections[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}

// CloseAll drops every connection
func (h *WSHub) CloseAll() {
	h.mu.RLock()
	users := make([]int64, 0, len(h.connections))
	for userID := range h.connections {
		users = append(users, userID)
	}
	h.mu.RUnlock()

	for _, userID := range users {
		h.CloseUser(userID)
	}
}

// ReadPump reads client messages until the connection fails and passes each
// one to handle. It unregisters the client on return.
func (c *WSClient) ReadPump(handle func(WSMessage)) {
	defer c.hub.Unregister(c)

	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Int64("user_id", c.UserID).Msg("WebSocket error")
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Error().Err(err).Int64("user_id", c.UserID).Msg("Failed to parse WebSocket message")
			c.Send(WSMessage{Type: EventError, Message: "invalid message format"})
			continue
		}
		msg.Raw = data
		handle(msg)
	}
}

// Send queues a message for this connection only
func (c *WSClient) Send(message WSMessage) {
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal WebSocket message")
		return
	}
	c.enqueue(data)
}

func (c *WSClient) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Int64("user_id", c.UserID).Msg("Failed to write WebSocket message")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
