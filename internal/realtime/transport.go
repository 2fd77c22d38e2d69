package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/marquee/marquee/internal/config"
)

var ErrTransportClosed = errors.New("transport closed")

// Transport is one connection to the reaction relay.
type Transport interface {
	// Send writes one envelope.
	Send(ctx context.Context, msg Message) error
	// Receive blocks until the next envelope arrives. It returns
	// ErrTransportClosed once Close has been called.
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// Dialer opens a Transport.
type Dialer func(ctx context.Context) (Transport, error)

// NewDialer returns the dialer selected by cfg.Transport.
func NewDialer(cfg config.RealtimeConfig) (Dialer, error) {
	switch cfg.Transport {
	case "", "websocket":
		url := cfg.URL
		return func(ctx context.Context) (Transport, error) {
			return DialWebSocket(ctx, url)
		}, nil
	case "amqp":
		url, exchange := cfg.AMQPURL, cfg.Exchange
		return func(ctx context.Context) (Transport, error) {
			return DialAMQP(ctx, url, exchange)
		}, nil
	default:
		return nil, fmt.Errorf("unknown realtime transport %q", cfg.Transport)
	}
}
