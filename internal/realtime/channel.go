package realtime

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/marquee/marquee/internal/metrics"
	"github.com/marquee/marquee/internal/startup"
)

// ErrClosed is returned by Publish when no connection is held, either because
// the channel was never opened or because the relay connection was lost.
var ErrClosed = errors.New("realtime channel is not open")

// Handler receives inbound reaction events. Handlers run on the channel's
// dispatch goroutine, one event at a time, in receipt order.
type Handler func(Event)

// Channel is the process-wide reaction connection. The first Open dials, later
// Opens share the connection, and the last matching Close tears it down. A lost
// connection is dropped; references stay counted and the next Open redials.
// Subscriptions are independent of the connection: a handler stays registered
// until its unsubscribe func is called. Close must not be called from a Handler.
type Channel struct {
	dial   Dialer
	clock  clockwork.Clock
	retry  startup.RetryConfig
	logger zerolog.Logger

	mu        sync.Mutex
	refs      int
	transport Transport
	cancel    context.CancelFunc
	done      chan struct{}
	handlers  map[uint64]Handler
	nextID    uint64
}

// Option configures a Channel.
type Option func(*Channel)

// WithClock sets the clock used to stamp events and envelopes.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Channel) {
		c.clock = clock
	}
}

// WithRetry sets the dial retry policy. Only network errors are retried; the
// default is a single attempt.
func WithRetry(cfg startup.RetryConfig) Option {
	return func(c *Channel) {
		c.retry = cfg
	}
}

// NewChannel creates a closed channel that will use dial on first Open.
func NewChannel(dial Dialer, logger zerolog.Logger, opts ...Option) *Channel {
	c := &Channel{
		dial:     dial,
		clock:    clockwork.NewRealClock(),
		retry:    startup.RetryConfig{MaxAttempts: 1},
		logger:   logger.With().Str("component", "realtime").Logger(),
		handlers: make(map[uint64]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.Clock == nil {
		c.retry.Clock = c.clock
	}
	return c
}

// Open acquires a reference, dialing when no connection is held.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport != nil {
		c.refs++
		return nil
	}

	var t Transport
	err := startup.WithRetry(ctx, "realtime-dial", c.retry, func() error {
		var dialErr error
		t, dialErr = c.dial(ctx)
		return dialErr
	}, &c.logger)
	if err != nil {
		return fmt.Errorf("open realtime channel: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.transport = t
	c.cancel = cancel
	c.done = make(chan struct{})
	c.refs++

	go c.receiveLoop(runCtx, t, c.done)

	c.logger.Debug().Msg("Realtime channel opened")
	return nil
}

// Close releases a reference. The connection is closed when the count reaches
// zero. Extra calls are no-ops.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.refs == 0 {
		c.mu.Unlock()
		return nil
	}
	c.refs--
	if c.refs > 0 {
		c.mu.Unlock()
		return nil
	}

	t, cancel, done := c.transport, c.cancel, c.done
	c.transport, c.cancel, c.done = nil, nil, nil
	c.mu.Unlock()

	if t == nil {
		return nil
	}
	cancel()
	err := t.Close()
	<-done

	c.logger.Debug().Msg("Realtime channel closed")
	return err
}

// Refs returns the number of outstanding Open calls.
func (c *Channel) Refs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs
}

// Publish sends kind to the relay. Delivery is fire-and-forget: send failures
// are logged, and only an invalid kind or a closed channel is reported.
func (c *Channel) Publish(ctx context.Context, kind Kind) error {
	kind, err := ParseKind(string(kind))
	if err != nil {
		return err
	}

	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return ErrClosed
	}

	if err := t.Send(ctx, NewMessage(TypeSendEmotion, kind, c.clock.Now())); err != nil {
		c.logger.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to publish reaction")
		return nil
	}
	metrics.ReactionsPublished.WithLabelValues(string(kind)).Inc()
	return nil
}

// Subscribe registers handler for inbound events. The returned func removes
// it; calling that func more than once has no further effect.
func (c *Channel) Subscribe(handler Handler) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = handler
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers, id)
			c.mu.Unlock()
		})
	}
}

// Subscribers returns the number of registered handlers.
func (c *Channel) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

func (c *Channel) receiveLoop(ctx context.Context, t Transport, done chan struct{}) {
	defer close(done)

	for {
		msg, err := t.Receive(ctx)
		if errors.Is(err, ErrMalformed) {
			c.logger.Warn().Err(err).Msg("Dropping realtime message")
			continue
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrTransportClosed) {
				return
			}
			c.logger.Error().Err(err).Msg("Realtime connection lost")
			c.drop(t)
			return
		}
		c.dispatch(msg)
	}
}

// drop forgets t if it is still the live transport, so Publish reports
// ErrClosed and the next Open dials a fresh connection.
func (c *Channel) drop(t Transport) {
	c.mu.Lock()
	if c.transport != t {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.transport, c.cancel, c.done = nil, nil, nil
	c.mu.Unlock()

	cancel()
	if err := t.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Closing lost realtime connection")
	}
}

func (c *Channel) dispatch(msg Message) {
	if msg.Type != TypeEmotionDetected {
		c.logger.Trace().Str("type", msg.Type).Msg("Ignoring realtime message")
		return
	}

	kind, err := ParseKind(msg.Payload)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Dropping reaction event")
		return
	}
	metrics.ReactionsReceived.WithLabelValues(string(kind)).Inc()

	ev := Event{Kind: kind, ReceivedAt: c.clock.Now()}

	c.mu.Lock()
	ids := slices.Sorted(maps.Keys(c.handlers))
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, c.handlers[id])
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
