package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// QueueName is the durable queue the mailer workers consume from.
const QueueName = "auth.notifications"

// AMQPNotifier publishes events to RabbitMQ. The channel is re-opened
// lazily after a broker hiccup so a flaky broker degrades to dropped
// notifications instead of failed logins.
type AMQPNotifier struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPNotifier(url string) (*AMQPNotifier, error) {
	n := &AMQPNotifier{url: url}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) connect() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("notify: dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("notify: open channel: %w", err)
	}

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("notify: declare queue: %w", err)
	}

	n.conn = conn
	n.ch = ch
	return nil
}

func (n *AMQPNotifier) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch == nil || n.conn == nil || n.conn.IsClosed() {
		if err := n.connect(); err != nil {
			return err
		}
	}

	err = n.ch.PublishWithContext(ctx,
		"",        // default exchange
		QueueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		// Drop the dead channel; the next publish reconnects.
		_ = n.ch.Close()
		n.ch = nil
		return fmt.Errorf("notify: publish: %w", err)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		err := n.conn.Close()
		n.conn = nil
		return err
	}
	return nil
}
