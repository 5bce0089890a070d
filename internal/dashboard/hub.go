package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/mohamedkhairy/market-pulse/pkg/logger"
)

const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
)

// client is a single dashboard WebSocket connection.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans indicator updates out to connected dashboard clients. It
// satisfies the feed sink interface, so the feed client can publish
// straight into it.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[string]*client
	stats    HubStats
}

// HubStats holds statistics about the hub
type HubStats struct {
	mu                sync.RWMutex
	ConnectionsTotal  int64
	ConnectionsActive int64
	UpdatesPublished  int64
	MessagesDropped   int64
}

// NewHub creates a new dashboard hub
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from the same host.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Publish broadcasts an indicator update to all connected clients.
// Slow clients are skipped rather than blocking the feed read loop.
func (h *Hub) Publish(update models.IndicatorUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		logger.Error("Failed to marshal indicator update",
			logger.ErrorField(err),
			logger.String("symbol", update.Symbol),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			dropped++
		}
	}

	h.stats.mu.Lock()
	h.stats.UpdatesPublished++
	h.stats.MessagesDropped += int64(dropped)
	h.stats.mu.Unlock()

	if dropped > 0 {
		logger.Debug("Dropped updates for slow dashboard clients",
			logger.String("symbol", update.Symbol),
			logger.Int("dropped", dropped),
		)
	}
}

// ServeWS upgrades an HTTP request to a dashboard WebSocket connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", logger.ErrorField(err))
		return
	}

	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	h.stats.mu.Lock()
	h.stats.ConnectionsTotal++
	h.stats.ConnectionsActive = int64(count)
	h.stats.mu.Unlock()

	logger.DashboardClients.Set(float64(count))
	logger.Info("Dashboard client connected",
		logger.String("client_id", c.id),
		logger.Int("total_connections", count),
	)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	count := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	c.conn.Close()

	h.stats.mu.Lock()
	h.stats.ConnectionsActive = int64(count)
	h.stats.mu.Unlock()

	logger.DashboardClients.Set(float64(count))
	logger.Info("Dashboard client disconnected",
		logger.String("client_id", c.id),
		logger.Int("total_connections", count),
	)
}

// writePump pumps buffered updates to the WebSocket connection
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames so pongs and close frames are processed.
// Dashboard clients are receive-only; anything they send is discarded.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Dashboard client read error",
					logger.ErrorField(err),
					logger.String("client_id", c.id),
				)
			}
			return
		}
	}
}

// ClientCount returns the number of connected dashboard clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetStats returns hub statistics
func (h *Hub) GetStats() HubStats {
	h.stats.mu.RLock()
	defer h.stats.mu.RUnlock()
	return HubStats{
		ConnectionsTotal:  h.stats.ConnectionsTotal,
		ConnectionsActive: int64(h.ClientCount()),
		UpdatesPublished:  h.stats.UpdatesPublished,
		MessagesDropped:   h.stats.MessagesDropped,
	}
}
