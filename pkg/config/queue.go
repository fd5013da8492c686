package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const (
	publishTimeout   = 5 * time.Second
	consumerPrefetch = 32
)

var errNoRabbitMQ = errors.New("RabbitMQ connection not initialized")

// declareQueue declares a durable queue for trade events and mint signals
func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return q, nil
}

// newPublishing wraps a JSON message as a persistent delivery. Type carries
// the Go type name so consumers can tell event kinds apart on a shared queue.
func newPublishing(message interface{}, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	kind := fmt.Sprintf("%T", message)
	if i := strings.LastIndex(kind, "."); i >= 0 {
		kind = kind[i+1:]
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         strings.TrimLeft(kind, "*"),
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}

// Publisher pushes JSON events onto durable queues over one channel
type Publisher struct {
	mu       sync.Mutex
	channel  *amqp.Channel
	declared map[string]bool
}

func NewPublisher() (*Publisher, error) {
	if RabbitMQ == nil {
		return nil, errNoRabbitMQ
	}
	ch, err := RabbitMQ.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return &Publisher{channel: ch, declared: make(map[string]bool)}, nil
}

// Publish sends message to queueName, declaring the queue on first use
func (p *Publisher) Publish(queueName string, message interface{}) error {
	msg, err := newPublishing(message, time.Now())
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[queueName] {
		if _, err := declareQueue(p.channel, queueName); err != nil {
			return err
		}
		p.declared[queueName] = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.channel.PublishWithContext(ctx, "", queueName, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", msg.Type, queueName, err)
	}

	log.WithFields(log.Fields{
		"queue":      queueName,
		"type":       msg.Type,
		"message_id": msg.MessageId,
		"bytes":      len(msg.Body),
	}).Debug("Published message")
	return nil
}

func (p *Publisher) Close() error {
	if p.channel == nil {
		return nil
	}
	return p.channel.Close()
}

// Consumer reads mint signals from one durable queue with manual acks
type Consumer struct {
	channel *amqp.Channel
	queue   string
}

func NewConsumer(queueName string) (*Consumer, error) {
	if RabbitMQ == nil {
		return nil, errNoRabbitMQ
	}
	ch, err := RabbitMQ.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	q, err := declareQueue(ch, queueName)
	if err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}
	return &Consumer{channel: ch, queue: q.Name}, nil
}

// shouldRequeue gives a failed delivery one more attempt; a message that
// already failed once is dropped so it cannot loop forever.
func shouldRequeue(redelivered bool) bool {
	return !redelivered
}

// Consume delivers messages to handler until ctx ends or the channel closes
func (c *Consumer) Consume(ctx context.Context, handler func([]byte) error) error {
	msgs, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", c.queue, err)
	}

	log.WithField("queue", c.queue).Info("Consumer is running")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			if err := handler(msg.Body); err != nil {
				requeue := shouldRequeue(msg.Redelivered)
				log.WithFields(log.Fields{
					"queue":      c.queue,
					"message_id": msg.MessageId,
					"requeue":    requeue,
					"error":      err.Error(),
				}).Warn("Handle msg failed")
				msg.Nack(false, requeue)
				continue
			}
			msg.Ack(false)
		}
	}
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
