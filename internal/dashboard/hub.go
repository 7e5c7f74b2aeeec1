package dashboard

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nifty-signal/internal/metrics"
)

// envelope is the WebSocket message format.
type envelope struct {
	Type string `json:"type"` // "snapshot" or "pong"
	Data any    `json:"data,omitempty"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Hub manages WebSocket viewers and fans snapshots out to them.
// The last broadcast is replayed to every new client.
type Hub struct {
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
	last    []byte
}

// NewHub creates an empty hub.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{metrics: m, clients: make(map[*Client]bool)}
}

// Broadcast sends data to every client. Slow clients whose buffer is full
// skip the message; the next snapshot supersedes it.
func (h *Hub) Broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Register attaches an upgraded connection and starts its pumps.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := &Client{conn: conn, send: make(chan []byte, sendBuffer), hub: h}

	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	h.metrics.SetWSClients(count)
	log.Printf("[dashboard] ws client connected (%d total)", count)

	go c.writePump()
	go c.readPump()
	return c
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	close(c.send)
	h.mu.Unlock()
	h.metrics.SetWSClients(count)
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[dashboard] ws client disconnected")
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		// application-level ping: {"ping": <client ms>}
		var base struct {
			Ping int64 `json:"ping"`
		}
		if json.Unmarshal(msg, &base) != nil || base.Ping == 0 {
			continue
		}
		pong, _ := json.Marshal(map[string]any{
			"type":      "pong",
			"ping":      base.Ping,
			"server_ts": time.Now().UnixMilli(),
		})
		c.hub.mu.RLock()
		if c.hub.clients[c] {
			select {
			case c.send <- pong:
			default:
			}
		}
		c.hub.mu.RUnlock()
	}
}
