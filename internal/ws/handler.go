package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Client represents a connected WebSocket client. The coordinator issues the
// player identity at connect time; it is decoupled from any transport-layer
// session token.
type Client struct {
	conn          *websocket.Conn
	playerID      string
	username      string
	authenticated bool
	send          chan []byte

	mu     sync.Mutex
	closed bool

	handler *Handler
}

// trySend queues a message unless the connection is closed or the buffer is
// full. Reports whether the message was queued.
func (c *Client) trySend(data []byte) bool {
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

// closeSend marks the client closed and closes its send channel exactly once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// PlayerID returns the identity the hub issued for this connection.
func (c *Client) PlayerID() string {
	return c.playerID
}

// Hub maintains the set of active clients and room membership.
type Hub struct {
	clients    map[string]*Client            // playerID -> Client
	rooms      map[string]map[string]*Client // roomID -> playerID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	// onDisconnect is invoked after a client is fully removed from the hub.
	onDisconnect func(playerID string)
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// envelope is the wire format for server-to-client events.
type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func marshalEvent(event string, payload interface{}) ([]byte, bool) {
	data, err := json.Marshal(envelope{Type: event, Data: payload})
	if err != nil {
		log.Printf("[WS] Error marshaling %s event: %v", event, err)
		return nil, false
	}
	return data, true
}

// SendToPlayer sends an event to a specific player.
func (h *Hub) SendToPlayer(playerID, event string, payload interface{}) {
	data, ok := marshalEvent(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.clients[playerID]; exists {
		if !client.trySend(data) {
			log.Printf("[WS] SendToPlayer dropped %s for player %s (buffer full)", event, playerID)
		}
	}
}

// BroadcastToRoom sends an event to every member of a room.
func (h *Hub) BroadcastToRoom(roomID, event string, payload interface{}) {
	data, ok := marshalEvent(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.rooms[roomID]; exists {
		for _, client := range room {
			if !client.trySend(data) {
				log.Printf("[WS] Dropping %s for player %s in room %s (buffer full)", event, client.playerID, roomID)
			}
		}
	}
}

// JoinRoom adds a player's connection to a room.
func (h *Hub) JoinRoom(roomID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, exists := h.clients[playerID]
	if !exists {
		log.Printf("[WS] JoinRoom: no connection for player %s (room %s)", playerID, roomID)
		return
	}
	if _, exists := h.rooms[roomID]; !exists {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][playerID] = client
}

// LeaveRoom removes a player's connection from a room.
func (h *Hub) LeaveRoom(roomID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, playerID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// IsConnected reports whether a player has a live connection.
func (h *Hub) IsConnected(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.clients[playerID]
	return exists
}

// Run processes register/unregister events. A reconnecting player replaces
// their old connection.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if oldClient, exists := h.clients[client.playerID]; exists {
				log.Printf("[WS] Player %s reconnecting - closing old connection", client.playerID)
				if err := oldClient.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"),
					time.Now().Add(5*time.Second)); err != nil {
					log.Printf("[WS] Error writing close control to old client %s: %v", oldClient.playerID, err)
				}
				oldClient.conn.Close()
				// Re-point any room membership at the new connection, then
				// close the old send channel.
				for _, room := range h.rooms {
					if room[client.playerID] == oldClient {
						room[client.playerID] = client
					}
				}
				oldClient.closeSend()
			}
			h.clients[client.playerID] = client
			h.mu.Unlock()

			log.Printf("[WS] Player %s connected", client.playerID)

		case client := <-h.unregister:
			h.mu.Lock()
			cur, ok := h.clients[client.playerID]
			if ok && cur == client {
				delete(h.clients, client.playerID)
				for roomID, room := range h.rooms {
					if room[client.playerID] == client {
						delete(room, client.playerID)
						if len(room) == 0 {
							delete(h.rooms, roomID)
						}
					}
				}
				client.closeSend()
			}
			h.mu.Unlock()

			if ok && cur == client {
				log.Printf("[WS] Player %s disconnected", client.playerID)
				if h.onDisconnect != nil {
					h.onDisconnect(client.playerID)
				}
			}
		}
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed: connection is being replaced or cleaned up.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for player %s: %v", c.playerID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for player %s: %v", c.playerID, err)
				return
			}
		}
	}
}

// readPump reads and routes client messages.
func (c *Client) readPump() {
	defer func() {
		c.handler.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close for player %s: %v", c.playerID, err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue
		}

		c.handler.handleMessage(c, env)
	}
}

// sendEvent pushes an event straight onto this client's send buffer.
func (c *Client) sendEvent(event string, payload interface{}) {
	data, ok := marshalEvent(event, payload)
	if !ok {
		return
	}
	if !c.trySend(data) {
		log.Printf("[WS] Dropping %s for player %s (buffer full)", event, c.playerID)
	}
}

// sendError sends a scoped error event back to the originating connection.
func (c *Client) sendError(scope, message string) {
	c.sendEvent("error", ErrorPayload{Scope: scope, Message: message})
}
