package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tabledesk/orderboard/internal/adapter/logger"
	"github.com/tabledesk/orderboard/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// BoardRenderer produces the current board view for one display client.
type BoardRenderer func(role domain.Role, sessionID string) interface{}

// Hub pushes a fresh board to every connected display after each snapshot
// commit, so displays do not have to poll this service on top of the
// service polling the backend.
type Hub struct {
	logger   logger.Logger
	render   BoardRenderer
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn      *websocket.Conn
	role      domain.Role
	sessionID string
	send      chan []byte
}

func NewHub(lgr logger.Logger, render BoardRenderer) *Hub {
	return &Hub{
		logger: lgr,
		render: render,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Serve upgrades one display connection and streams board updates to it
// until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, role domain.Role, sessionID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws_upgrade_failed", "WebSocket upgrade failed", sessionID, nil, err)
		return
	}

	c := &client{
		conn:      conn,
		role:      role,
		sessionID: sessionID,
		send:      make(chan []byte, 8),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("ws_connected", "Display connected", sessionID, map[string]interface{}{
		"role": string(role),
	})

	h.push(c)

	go h.writeLoop(c)
	h.readLoop(c)
}

// Broadcast re-renders and pushes the board to every connected display.
// Wired as a snapshot subscriber on the sync engine.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.push(c)
	}
}

func (h *Hub) push(c *client) {
	view := h.render(c.role, c.sessionID)
	data, err := json.Marshal(view)
	if err != nil {
		h.logger.Error("ws_marshal_failed", "Failed to marshal board view", c.sessionID, nil, err)
		return
	}

	// A display that cannot keep up misses intermediate versions; the
	// next commit delivers a complete board again. Membership is
	// rechecked under the lock so a dropped client's channel is never
	// written after close.
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
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

func (h *Hub) readLoop(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	c.conn.Close()

	h.logger.Debug("ws_disconnected", "Display disconnected", c.sessionID, map[string]interface{}{
		"role": string(c.role),
	})
}
