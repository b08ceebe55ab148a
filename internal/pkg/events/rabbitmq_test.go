package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/food-orders/internal/pkg/interceptors/constants"
)

type fakeChannel struct {
	mu        sync.Mutex
	seq       uint64
	err       error
	published []amqp.Publishing
	keys      []string
}

func newFakeChannel() *fakeChannel { return &fakeChannel{seq: 1} }

func (c *fakeChannel) GetNextPublishSeqNo() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.seq++
	c.published = append(c.published, msg)
	c.keys = append(c.keys, key)
	return nil
}

func publishAsync(ctx context.Context, p *Publisher, key string) <-chan error {
	done := make(chan error, 1)
	go func() { done <- p.Publish(ctx, key, ports.OrderEvent{OrderID: "o1", UserID: "u1"}) }()
	return done
}

func waitPending(t *testing.T, p *Publisher, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return p.confirms.pending() == n }, time.Second, time.Millisecond)
}

func TestPublishAck(t *testing.T) {
	ch := newFakeChannel()
	confirms := make(chan amqp.Confirmation, 1)
	p := newPublisher(ch, confirms)

	ctx := constants.WithRequestMetadata(context.Background(), "req-1", "")
	done := publishAsync(ctx, p, ports.EventOrderPlaced)
	waitPending(t, p, 1)
	confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
	require.NoError(t, <-done)

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, ports.EventOrderPlaced, ch.keys[0])
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "o1", msg.CorrelationId)
	assert.Equal(t, "req-1", msg.Headers[constants.HeaderXRequestId])
	var ev ports.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Body, &ev))
	assert.Equal(t, "u1", ev.UserID)
}

func TestPublishNack(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 1)
	p := newPublisher(newFakeChannel(), confirms)

	done := publishAsync(context.Background(), p, ports.EventOrderPaid)
	waitPending(t, p, 1)
	confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: false}
	assert.ErrorContains(t, <-done, "nack from broker")
}

func TestAbandonedConfirmIsNotCreditedToNextPublish(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 1)
	p := newPublisher(newFakeChannel(), confirms)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.Publish(ctx, ports.EventOrderPlaced, ports.OrderEvent{}), context.DeadlineExceeded)
	assert.Zero(t, p.confirms.pending())

	// The late ack for the first message must not satisfy the second one.
	confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
	done := publishAsync(context.Background(), p, ports.EventOrderPaid)
	waitPending(t, p, 1)

	select {
	case err := <-done:
		t.Fatalf("publish returned before its own confirm: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	confirms <- amqp.Confirmation{DeliveryTag: 2, Ack: false}
	assert.ErrorContains(t, <-done, "nack from broker")
}

func TestConfirmsMatchedOutOfOrder(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 2)
	p := newPublisher(newFakeChannel(), confirms)

	first := publishAsync(context.Background(), p, ports.EventOrderPlaced)
	waitPending(t, p, 1)
	second := publishAsync(context.Background(), p, ports.EventOrderPaid)
	waitPending(t, p, 2)

	confirms <- amqp.Confirmation{DeliveryTag: 2, Ack: true}
	require.NoError(t, <-second)
	confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: false}
	assert.Error(t, <-first)
}

func TestPublishChannelClosed(t *testing.T) {
	confirms := make(chan amqp.Confirmation)
	p := newPublisher(newFakeChannel(), confirms)

	done := publishAsync(context.Background(), p, ports.EventOrderCancelled)
	waitPending(t, p, 1)
	close(confirms)
	assert.ErrorIs(t, <-done, ErrConfirmsClosed)

	assert.ErrorIs(t, p.Publish(context.Background(), ports.EventOrderCancelled, ports.OrderEvent{}), ErrConfirmsClosed)
}

func TestPublishErrorReleasesTag(t *testing.T) {
	ch := newFakeChannel()
	ch.err = errors.New("channel/connection is not open")
	p := newPublisher(ch, make(chan amqp.Confirmation))

	err := p.Publish(context.Background(), ports.EventOrderPlaced, ports.OrderEvent{})
	assert.ErrorContains(t, err, "not open")
	assert.Zero(t, p.confirms.pending())
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Publish(context.Background(), ports.EventOrderPlaced, ports.OrderEvent{}))
}
