// Package websocket hosts the reaction relay: clients send send-emotion
// envelopes and every connected client receives the matching emotion-detected.
package websocket

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marquee/marquee/internal/metrics"
	"github.com/marquee/marquee/internal/realtime"
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

var ErrStopped = errors.New("relay stopped")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// incomingMessage wraps a message from a client.
type incomingMessage struct {
	client  *Client
	message []byte
}

// Hub manages relay connections and broadcasts.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	incoming   chan incomingMessage
	done       chan struct{}
	mu         sync.RWMutex

	history *History
	clock   clockwork.Clock
	logger  zerolog.Logger
}

// Client represents a WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Option configures a Hub.
type Option func(*Hub)

// WithClock sets the clock used for envelope timestamps and history.
func WithClock(clock clockwork.Clock) Option {
	return func(h *Hub) {
		h.clock = clock
	}
}

// NewHub creates a relay that remembers the last historySize reactions.
func NewHub(historySize int, logger zerolog.Logger, opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan incomingMessage, 256),
		done:       make(chan struct{}),
		history:    NewHistory(historySize),
		clock:      clockwork.NewRealClock(),
		logger:     logger.With().Str("component", "relay").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's main loop and blocks until ctx is done. Remaining
// clients are disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.disconnectAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			metrics.RelayClients.Set(float64(len(h.clients)))
			h.mu.Unlock()
			h.logger.Debug().Str("remote", client.conn.RemoteAddr().String()).Msg("Relay client connected")

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.deliver(message)

		case incoming := <-h.incoming:
			h.handleIncoming(incoming)
		}
	}
}

func (h *Hub) deliver(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Slow consumer.
			close(client.send)
			delete(h.clients, client)
		}
	}
	metrics.RelayClients.Set(float64(len(h.clients)))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	metrics.RelayClients.Set(float64(len(h.clients)))
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	metrics.RelayClients.Set(0)
}

// handleIncoming processes messages received from clients.
func (h *Hub) handleIncoming(incoming incomingMessage) {
	msg, err := realtime.Decode(incoming.message)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Ignoring relay message")
		return
	}

	switch msg.Type {
	case realtime.TypeSendEmotion:
		kind, err := realtime.ParseKind(msg.Payload)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Rejected reaction")
			return
		}
		data, err := h.record(kind)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to relay reaction")
			return
		}
		h.deliver(data)
	default:
		h.logger.Debug().Str("type", msg.Type).Msg("Ignoring relay message")
	}
}

// Relay records kind and broadcasts it as an emotion-detected event. It is
// used by producers other than relay clients, such as a detector.
func (h *Hub) Relay(kind realtime.Kind) error {
	if h.Stopped() {
		return ErrStopped
	}
	data, err := h.record(kind)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return ErrStopped
	}
}

func (h *Hub) record(kind realtime.Kind) ([]byte, error) {
	now := h.clock.Now()
	h.history.Add(Reaction{Kind: kind, At: now})
	return realtime.Encode(realtime.NewMessage(realtime.TypeEmotionDetected, kind, now))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stopped reports whether Run has returned.
func (h *Hub) Stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// History returns the reaction history.
func (h *Hub) History() *History {
	return h.history
}

// Stats summarizes the relay for status endpoints.
type Stats struct {
	Clients   int                   `json:"clients"`
	Reactions uint64                `json:"reactions"`
	Counts    map[realtime.Kind]int `json:"counts"`
}

// Stats returns a snapshot of the relay state.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients:   h.ClientCount(),
		Reactions: h.history.Total(),
		Counts:    h.history.Counts(),
	}
}

// HandleWebSocket handles WebSocket connection upgrade.
// GET /ws
func (h *Hub) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()

	return nil
}

// HandleHistory returns recent reactions, newest first.
// GET /api/v1/reactions?limit=
func (h *Hub) HandleHistory(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	return c.JSON(http.StatusOK, map[string]any{
		"reactions": h.history.Recent(limit),
		"counts":    h.history.Counts(),
	})
}

// readPump pumps messages from the websocket connection to the hub.
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
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Msg("Relay client read error")
			}
			break
		}

		select {
		case c.hub.incoming <- incomingMessage{client: c, message: message}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One envelope per frame.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
