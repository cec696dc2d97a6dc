package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event names
const (
	EventStateUpdate = "state_update"
	EventCity        = "city_event"
)

// Message represents a WebSocket message
type Message struct {
	SessionID string             `json:"session_id"`
	City      *service.CityState `json:"city,omitempty"`
	Event     string             `json:"event,omitempty"`
	Data      any                `json:"data,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients and broadcasts messages. All
// client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Outbound messages for a session
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Client count queries
	counts chan countQuery

	// Closed when Run returns
	done chan struct{}
}

type countQuery struct {
	sessionID string
	reply     chan int
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, engine.WebSocketBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countQuery),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop and returns when ctx is done, closing
// every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case q := <-h.counts:
			q.reply <- len(h.sessions[q.sessionID])
		}
	}
}

// ServeWS upgrades the request and subscribes the connection to a session
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, engine.WebSocketBufferSize),
		sessionID: sessionID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ClientCount returns the number of clients subscribed to a session
func (h *Hub) ClientCount(sessionID string) int {
	reply := make(chan int, 1)
	select {
	case h.counts <- countQuery{sessionID: sessionID, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// BroadcastToSession sends a city state update to all clients of a session
func (h *Hub) BroadcastToSession(sessionID string, state *service.CityState) {
	h.enqueue(&Message{
		SessionID: sessionID,
		City:      state,
		Event:     EventStateUpdate,
	})
}

// BroadcastEvent sends a custom event to all clients of a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data any) {
	h.enqueue(&Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	})
}

// enqueue drops the message when the hub is saturated
func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		log.Printf("WebSocket broadcast queue full, dropping %s for session %s", message.Event, message.SessionID)
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	log.Printf("Client registered for session %s (total clients: %d)",
		client.sessionID, len(h.sessions[client.sessionID]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	log.Printf("Client unregistered from session %s (remaining clients: %d)",
		client.sessionID, len(clients))
}

// broadcastMessage sends a message to all clients in a session. Clients that
// cannot keep up are dropped.
func (h *Hub) broadcastMessage(message *Message) {
	clients, ok := h.sessions[message.SessionID]
	if !ok {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal broadcast message: %v", err)
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.unregisterClient(client)
		}
	}
}

// readPump keeps the connection alive and detects disconnects. Incoming
// messages are ignored.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection, one
// JSON document per frame
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
