package events

import (
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// confirmTracker routes broker confirmations to the publish that owns the
// delivery tag. Confirmations for tags nobody waits on are dropped, so an
// abandoned wait never shifts acks onto later messages.
type confirmTracker struct {
	mu      sync.Mutex
	waiters map[uint64]chan bool
	closed  bool
}

func newConfirmTracker(src <-chan amqp.Confirmation) *confirmTracker {
	t := &confirmTracker{waiters: make(map[uint64]chan bool)}
	go t.run(src)
	return t
}

func (t *confirmTracker) run(src <-chan amqp.Confirmation) {
	for c := range src {
		t.mu.Lock()
		if w, ok := t.waiters[c.DeliveryTag]; ok {
			w <- c.Ack
			delete(t.waiters, c.DeliveryTag)
		}
		t.mu.Unlock()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for tag, w := range t.waiters {
		close(w)
		delete(t.waiters, tag)
	}
}

// expect registers interest in tag. The returned channel yields the ack
// flag once, or is closed when the confirm stream ends first.
func (t *confirmTracker) expect(tag uint64) <-chan bool {
	w := make(chan bool, 1)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		close(w)
		return w
	}
	t.waiters[tag] = w
	return w
}

func (t *confirmTracker) forget(tag uint64) {
	t.mu.Lock()
	delete(t.waiters, tag)
	t.mu.Unlock()
}

func (t *confirmTracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}
