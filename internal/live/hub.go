// Package live pushes dataset reload events to browsers over websockets.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tradedash/internal/dashboard"
	applog "tradedash/internal/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 8
)

// EventDatasetReloaded is the type of the message sent after a reload.
const EventDatasetReloaded = "dataset:reloaded"

// Event is the JSON payload written to every client.
type Event struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to connected websocket clients. Run must be
// started before clients connect.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	clients    map[*client]struct{}
	count      int64
	done       chan struct{}
	logger     *applog.Logger
	upgrader   websocket.Upgrader
}

func NewHub(logger *applog.Logger) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
		logger:     logger.WithComponent(applog.ComponentLive),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			atomic.StoreInt64(&h.count, int64(len(h.clients)))
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client; drop it rather than block the hub.
					h.remove(c)
				}
			}
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	atomic.StoreInt64(&h.count, int64(len(h.clients)))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(atomic.LoadInt64(&h.count))
}

// Broadcast queues ev for every connected client. It returns false when
// the hub has stopped.
func (h *Hub) Broadcast(ev Event) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", applog.FieldError, err)
		return false
	}
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- payload:
		return true
	case <-h.done:
		return false
	}
}

// DatasetReloaded implements dashboard.Notifier.
func (h *Hub) DatasetReloaded(ctx context.Context, snap *dashboard.Snapshot) {
	if h.Broadcast(Event{Type: EventDatasetReloaded, Version: snap.Version}) {
		h.logger.DebugContext(ctx, "Reload broadcast",
			applog.FieldDatasetVersion, snap.Version,
			"clients", h.Clients())
	}
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.WarnContext(r.Context(), "Websocket upgrade failed", applog.FieldError, err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards client messages and detects closed connections.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Websocket closed", applog.FieldError, err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
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
