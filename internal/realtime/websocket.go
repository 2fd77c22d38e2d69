package realtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the relay.
	writeWait = 10 * time.Second

	// Time allowed between frames from the relay. The relay pings well
	// inside this, so silence means the connection is gone.
	readWait = 75 * time.Second

	maxMessageSize = 4096
)

type wsTransport struct {
	conn     *websocket.Conn
	readWait time.Duration
	writeMu  sync.Mutex
	closed   atomic.Bool
}

// WebSocketOption configures DialWebSocket.
type WebSocketOption func(*wsTransport)

// WithReadTimeout overrides how long Receive waits for any frame, pings
// included, before failing.
func WithReadTimeout(d time.Duration) WebSocketOption {
	return func(t *wsTransport) {
		if d > 0 {
			t.readWait = d
		}
	}
}

// DialWebSocket connects to a relay at url, e.g. ws://localhost:5000/ws.
func DialWebSocket(ctx context.Context, url string, opts ...WebSocketOption) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	t := &wsTransport{conn: conn, readWait: readWait}
	for _, opt := range opts {
		opt(t)
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(t.readWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(t.readWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		var netErr net.Error
		if errors.Is(err, websocket.ErrCloseSent) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil
		}
		return err
	})
	return t, nil
}

func (t *wsTransport) Send(ctx context.Context, msg Message) error {
	if t.closed.Load() {
		return ErrTransportClosed
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(deadline)
	if err := t.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("websocket send: %w", err)
	}
	return nil
}

// Receive reads the next text frame. Pings from the relay are answered while
// reading and extend the read deadline, as does every data frame.
func (t *wsTransport) Receive(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			if t.closed.Load() {
				return Message{}, ErrTransportClosed
			}
			return Message{}, fmt.Errorf("websocket receive: %w", err)
		}
		t.conn.SetReadDeadline(time.Now().Add(t.readWait))
		if msgType != websocket.TextMessage {
			continue
		}
		return Decode(data)
	}
}

func (t *wsTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.writeMu.Lock()
	t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()

	return t.conn.Close()
}
