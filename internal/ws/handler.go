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

// Client represents a connected WebSocket client. identity and roomID are
// empty until the client binds to a seat (create/join/reconnect).
type Client struct {
	conn     *websocket.Conn
	connID   string
	identity string
	roomID   string
	send     chan []byte
}

// Hub maintains the set of active clients
type Hub struct {
	clients map[string]*Client            // connID -> Client
	rooms   map[string]map[string]*Client // roomID -> identity -> Client
	mu      sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.connID] = c
}

// bind attaches a client to a seat once the engine accepted it. A previous
// client under the same identity (a zombie connection the engine already
// evicted) has its send channel closed so its writePump exits.
func (h *Hub) bind(c *Client, roomID, identity string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.roomID = roomID
	c.identity = identity
	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[roomID] = room
	}
	if old, ok := room[identity]; ok && old != c {
		// Force the old pumps to exit; the old readPump cleans itself up.
		old.conn.Close()
		delete(h.clients, old.connID)
	}
	room[identity] = c
}

// unbind detaches a client from its seat without dropping the connection,
// used on an explicit leave_room.
func (h *Hub) unbind(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[c.roomID]; ok {
		if current, ok := room[c.identity]; ok && current == c {
			delete(room, c.identity)
			if len(room) == 0 {
				delete(h.rooms, c.roomID)
			}
		}
	}
	c.roomID = ""
	c.identity = ""
}

// removeClient drops a client from the hub. Returns true if this client was
// still the one bound to its seat; a replaced connection returns false so
// the caller does not treat the swap as a disconnect.
func (h *Hub) removeClient(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, c.connID)
	if c.roomID == "" {
		return false
	}
	room, ok := h.rooms[c.roomID]
	if !ok {
		return false
	}
	if current, ok := room[c.identity]; !ok || current != c {
		return false
	}
	delete(room, c.identity)
	if len(room) == 0 {
		delete(h.rooms, c.roomID)
	}
	return true
}

// BroadcastToRoom sends a message to every connected player in a room.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.rooms[roomID]; exists {
		for _, client := range room {
			select {
			case client.send <- data:
			default:
				// Client's buffer is full
				log.Printf("Client send buffer full for %s in room %s, dropping message", client.identity, roomID)
			}
		}
	}
}

// SendToIdentity sends a message to one player in a room.
func (h *Hub) SendToIdentity(roomID, identity string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.rooms[roomID]; exists {
		if client, exists := room[identity]; exists {
			select {
			case client.send <- data:
				// sent
			default:
				log.Printf("[WS] SendToIdentity dropped message for %s (buffer full)", identity)
			}
		}
	}
}

// WSMessage is the envelope every inbound frame uses.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// writePump writes messages to the WebSocket connection
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
				// Channel closed - connection is being replaced or cleaned up.
				// Best-effort close frame; ignore errors (conn may already be closed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error for %s: %v", c.connID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("WebSocket ping error for %s: %v", c.connID, err)
				return
			}
		}
	}
}

// sendError sends a typed error message to the client
func (c *Client) sendError(kind, message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"kind":    kind,
		"message": message,
	})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendJSON(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] send buffer full for %s, dropping message", c.connID)
	}
}
