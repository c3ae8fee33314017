package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cx-tal-miterani/avi-itinerary/internal/notifier"
	"github.com/cx-tal-miterani/avi-itinerary/internal/render"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeChat        MessageType = "chat_message"
	MessageTypeViewUpdated MessageType = "view_updated"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType           `json:"type"`
	Chat      *notifier.ChatMessage `json:"chat,omitempty"`
	View      *render.View          `json:"view,omitempty"`
	Timestamp int64                 `json:"timestamp"`
}

// Client represents a WebSocket client connection
type Client struct {
	id   uuid.UUID
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans out chat lines and view refreshes to every connected client
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	upgrader    websocket.Upgrader
	currentView func() render.View
	logger      *zap.Logger
}

// NewHub creates a new Hub. currentView, when set, is sent to each client
// as soon as it connects.
func NewHub(logger *zap.Logger, currentView func() render.View) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, sendBuffer),
		stop:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		currentView: currentView,
		logger:      logger.Named("websocket"),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client registered", zap.Stringer("clientID", client.id), zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			remaining := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", zap.Stringer("clientID", client.id), zap.Int("remaining", remaining))

		case data := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("Dropping slow client", zap.Stringer("clientID", client.id))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop ends Run and closes every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Append implements notifier.Transcript
func (h *Hub) Append(msg notifier.ChatMessage) {
	h.publish(&Message{Type: MessageTypeChat, Chat: &msg, Timestamp: msg.Timestamp.UnixMilli()})
}

// BroadcastView pushes a fresh itinerary view to every client
func (h *Hub) BroadcastView(view render.View) {
	h.publish(&Message{Type: MessageTypeViewUpdated, View: &view, Timestamp: time.Now().UnixMilli()})
}

// publish never blocks: callers run inside the itinerary lock
func (h *Hub) publish(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal message", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Broadcast queue full, dropping message", zap.String("type", string(msg.Type)))
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches the connection to the hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:   uuid.New(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	if h.currentView != nil {
		view := h.currentView()
		if data, err := json.Marshal(&Message{Type: MessageTypeViewUpdated, View: &view, Timestamp: time.Now().UnixMilli()}); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.stop:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so control frames are processed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
