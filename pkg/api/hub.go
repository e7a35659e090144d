package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nirmaltodwal7/facegate/pkg/logging"
	"github.com/nirmaltodwal7/facegate/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// presenceEvent is pushed to the dashboard whenever the watcher's
// "face currently visible" indicator changes.
type presenceEvent struct {
	Type    string    `json:"type"`
	Visible bool      `json:"visible"`
	At      time.Time `json:"at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans presence updates out to connected dashboard clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	visible bool
}

// NewHub creates an empty presence hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// SetVisible records a presence transition and broadcasts it. Wire this
// as the watcher's onChange callback.
func (h *Hub) SetVisible(visible bool) {
	h.mu.Lock()
	h.visible = visible
	data, err := json.Marshal(presenceEvent{Type: "presence", Visible: visible, At: time.Now()})
	if err != nil {
		h.mu.Unlock()
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client: drop it rather than block the watcher.
			delete(h.clients, c)
			close(c.send)
			metrics.WSConnections.Dec()
		}
	}
	h.mu.Unlock()
}

// HandleWS upgrades the connection and streams presence events. The
// current state is sent immediately so the indicator renders at once.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Component("api").WithError(err).Warn("websocket upgrade failed")
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, 16)}

	h.mu.Lock()
	h.clients[cl] = true
	current, _ := json.Marshal(presenceEvent{Type: "presence", Visible: h.visible, At: time.Now()})
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	cl.send <- current

	go cl.writePump()
	go cl.readPump(h)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump exists only to detect disconnection.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.send)
			metrics.WSConnections.Dec()
		}
		h.mu.Unlock()
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
