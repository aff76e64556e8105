/**
 * @description
 * RabbitMQ consumer used to fan mission lifecycle events back into every
 * service instance. Each instance binds its own durable queue to the topic
 * exchange and hands deliveries to per-routing-key handlers; a handler
 * returning false re-queues the delivery. Close stops the delivery loop
 * before tearing down the channel, so a shutdown never nacks messages a
 * handler is still processing.
 *
 * @dependencies
 * - github.com/rabbitmq/amqp091-go: AMQP 0-9-1 client.
 */

package rabbitmq

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer holds the RabbitMQ connection and channel for consuming messages.
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	done      chan struct{}
	closeOnce sync.Once
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", fmt.Errorf("invalid AMQP scheme: %s", parsed.Scheme)
	}
	return clean, nil
}

// NewConsumer connects to RabbitMQ and opens a channel for consuming.
func NewConsumer(amqpURL string) (*Consumer, error) {
	cleanURL, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(cleanURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, ch: ch, done: make(chan struct{})}, nil
}

// ConsumeWithBindings declares a durable queue bound to the given routing keys
// on a topic exchange and dispatches deliveries to the matching handler. A
// handler returning false re-queues the delivery. The delivery loop runs until
// Close is called or the broker drops the channel.
func (c *Consumer) ConsumeWithBindings(exchange, queueName string, bindings map[string]func([]byte) bool) error {
	if len(bindings) == 0 {
		return fmt.Errorf("no bindings provided")
	}

	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	q, err := c.ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	handlers := make(map[string]func([]byte) bool)
	for routingKey, handler := range bindings {
		if handler == nil {
			continue
		}
		handlers[routingKey] = handler
		if err := c.ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			return err
		}
	}

	msgs, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go c.dispatch(q.Name, msgs, handlers)
	return nil
}

func (c *Consumer) dispatch(queueName string, msgs <-chan amqp.Delivery, handlers map[string]func([]byte) bool) {
	for {
		select {
		case <-c.done:
			log.Printf("level=info component=rabbitmq_consumer msg=\"consumer closed; stopping delivery loop\" queue=%s", queueName)
			return
		case d, ok := <-msgs:
			if !ok {
				log.Printf("level=warn component=rabbitmq_consumer msg=\"delivery channel closed by broker\" queue=%s", queueName)
				return
			}
			handler, found := handlers[d.RoutingKey]
			if !found {
				log.Printf("level=warn component=rabbitmq_consumer msg=\"no handler for routing key; acknowledging to drop\" routing_key=%s", d.RoutingKey)
				d.Ack(false)
				continue
			}
			if handler(d.Body) {
				d.Ack(false)
			} else {
				log.Printf("level=warn component=rabbitmq_consumer msg=\"handler failed; re-queueing\" routing_key=%s", d.RoutingKey)
				d.Nack(false, true)
			}
		}
	}
}

// Close stops the delivery loop, then closes the channel and connection.
// Safe to call more than once.
func (c *Consumer) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
