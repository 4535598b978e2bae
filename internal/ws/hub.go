package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"crm-intelligence/internal/models"
	"crm-intelligence/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Client represents a connected WebSocket client, bound to one owner scope.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	owner string
	send  chan []byte
}

type message struct {
	owner   string
	payload []byte
}

// Hub maintains the set of active clients and pushes engine events
// (new interactions, fresh recommendations) to dashboard clients. Events are
// fanned out only to clients registered under the originating owner; one
// tenant's data never reaches another tenant's connection.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debug("websocket client registered", zap.String("owner", client.owner))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Debug("websocket client unregistered")
		case m := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.owner != m.owner {
					continue
				}
				select {
				case client.send <- m.payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (h *Hub) BroadcastEvent(ownerID, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		logger.Error("marshal ws event", zap.Error(err))
		return
	}
	h.broadcast <- message{owner: ownerID, payload: payload}
}

func (h *Hub) NotifyInteraction(ownerID string, interaction *models.Interaction) {
	h.BroadcastEvent(ownerID, "interaction_recorded", interaction)
}

func (h *Hub) NotifyRecommendations(ownerID string, recs []models.Recommendation) {
	if len(recs) == 0 {
		return
	}
	h.BroadcastEvent(ownerID, "recommendations_updated", recs)
}

// ServeWs binds the connection to the caller's owner scope before upgrading.
// The query parameter exists because browser WebSocket clients cannot set
// request headers.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get("X-Owner-ID")
	if owner == "" {
		owner = r.URL.Query().Get("owner")
	}
	if owner == "" {
		http.Error(w, "missing X-Owner-ID header or owner query parameter", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade", zap.Error(err))
		return
	}
	client := &Client{hub: h, conn: conn, owner: owner, send: make(chan []byte, 256)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		// Clients only listen; inbound frames are heartbeats at most.
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
