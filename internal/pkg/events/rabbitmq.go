// Package events publishes order lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/food-orders/internal/pkg/interceptors/constants"
)

const Exchange = "orders_topic"

// ErrConfirmsClosed is returned when the channel closes before the broker
// confirmed a message.
var ErrConfirmsClosed = errors.New("events: confirm stream closed")

var _ ports.EventPublisher = (*Publisher)(nil)

// publishChannel is the part of *amqp.Channel the publisher drives.
type publishChannel interface {
	GetNextPublishSeqNo() uint64
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends persistent JSON messages and waits for the broker confirm
// of each one. Only sequence number allocation and the publish itself are
// serialised; waits run concurrently.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	pub      publishChannel
	confirms *confirmTracker
	mu       sync.Mutex
}

func newPublisher(pub publishChannel, confirms <-chan amqp.Confirmation) *Publisher {
	return &Publisher{pub: pub, confirms: newConfirmTracker(confirms)}
}

// Dial connects to url, declares the topic exchange and enables confirms.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: enable confirms: %w", err)
	}
	p := newPublisher(ch, ch.NotifyPublish(make(chan amqp.Confirmation, 16)))
	p.conn, p.ch = conn, ch
	return p, nil
}

func (p *Publisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *Publisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("events: connection is closed")
	}
	return nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, event ports.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", routingKey, err)
	}

	headers := amqp.Table{}
	if id := constants.RequestID(ctx); id != "" {
		headers[constants.HeaderXRequestId] = id
	}

	p.mu.Lock()
	tag := p.pub.GetNextPublishSeqNo()
	confirmed := p.confirms.expect(tag)
	err = p.pub.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		CorrelationId: event.OrderID,
		Timestamp:     time.Now().UTC(),
		Headers:       headers,
		Body:          body,
	})
	p.mu.Unlock()
	if err != nil {
		p.confirms.forget(tag)
		return fmt.Errorf("events: publish %s: %w", routingKey, err)
	}

	select {
	case ack, ok := <-confirmed:
		if !ok {
			return fmt.Errorf("events: publish %s: %w", routingKey, ErrConfirmsClosed)
		}
		if !ack {
			return fmt.Errorf("events: publish %s: nack from broker", routingKey)
		}
		return nil
	case <-ctx.Done():
		// The confirm may still arrive; the tracker drops it.
		p.confirms.forget(tag)
		return ctx.Err()
	}
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, ports.OrderEvent) error { return nil }
