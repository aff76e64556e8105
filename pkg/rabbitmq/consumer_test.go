package rabbitmq

import (
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type ackRecorder struct {
	mu     sync.Mutex
	acks   []uint64
	nacks  []uint64
	requeu []bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, tag)
	a.requeu = append(a.requeu, requeue)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error { return nil }

func (a *ackRecorder) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acks), len(a.nacks)
}

func delivery(ack amqp.Acknowledger, tag uint64, routingKey string, body []byte) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, RoutingKey: routingKey, Body: body}
}

func TestDispatchAcksAndRequeuesByHandlerVerdict(t *testing.T) {
	rec := &ackRecorder{}
	msgs := make(chan amqp.Delivery, 3)
	msgs <- delivery(rec, 1, "mission.lifecycle.paused", []byte(`{}`))
	msgs <- delivery(rec, 2, "mission.lifecycle.completed", []byte(`{}`))
	msgs <- delivery(rec, 3, "mission.lifecycle.unbound", []byte(`{}`))
	close(msgs)

	handled := make(map[string]int)
	var mu sync.Mutex
	handlers := map[string]func([]byte) bool{
		"mission.lifecycle.paused": func(body []byte) bool {
			mu.Lock()
			handled["paused"]++
			mu.Unlock()
			return true
		},
		"mission.lifecycle.completed": func(body []byte) bool {
			mu.Lock()
			handled["completed"]++
			mu.Unlock()
			return false
		},
	}

	c := &Consumer{done: make(chan struct{})}
	finished := make(chan struct{})
	go func() {
		c.dispatch("mission_events", msgs, handlers)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not drain the closed delivery channel")
	}

	acks, nacks := rec.counts()
	// The successful handler and the unbound routing key both ack; the failing
	// handler nacks with requeue.
	if acks != 2 {
		t.Fatalf("expected 2 acks, got %d", acks)
	}
	if nacks != 1 || !rec.requeu[0] {
		t.Fatalf("expected 1 re-queueing nack, got %d", nacks)
	}
	if handled["paused"] != 1 || handled["completed"] != 1 {
		t.Fatalf("unexpected handler dispatch counts: %v", handled)
	}
}

func TestDispatchStopsOnClose(t *testing.T) {
	msgs := make(chan amqp.Delivery) // never delivers
	c := &Consumer{done: make(chan struct{})}

	finished := make(chan struct{})
	go func() {
		c.dispatch("mission_events", msgs, map[string]func([]byte) bool{})
		close(finished)
	}()

	close(c.done)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not stop after close")
	}
}
