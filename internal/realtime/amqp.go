package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpTransport publishes envelopes to a fanout exchange and consumes them from
// an exclusive, server-named queue bound to the same exchange. Every process
// sees every envelope, including its own; the channel filters by type.
type amqpTransport struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	exchange   string
	deliveries <-chan amqp.Delivery
}

// DialAMQP connects to a broker and binds a private queue to exchange.
func DialAMQP(ctx context.Context, url, exchange string) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	t, err := setupAMQP(conn, exchange)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

func setupAMQP(conn *amqp.Connection, exchange string) (*amqpTransport, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("error declaring exchange: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("error declaring queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return nil, fmt.Errorf("error binding queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	return &amqpTransport{
		conn:       conn,
		ch:         ch,
		exchange:   exchange,
		deliveries: deliveries,
	}, nil
}

func (t *amqpTransport) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = t.ch.PublishWithContext(ctx, t.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Type:        msg.Type,
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			return ErrTransportClosed
		}
		return fmt.Errorf("error sending message: %w", err)
	}
	return nil
}

func (t *amqpTransport) Receive(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case d, ok := <-t.deliveries:
		if !ok {
			return Message{}, ErrTransportClosed
		}
		return Decode(d.Body)
	}
}

func (t *amqpTransport) Close() error {
	var errs []error
	if err := t.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
	}
	if err := t.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
	}
	return errors.Join(errs...)
}
