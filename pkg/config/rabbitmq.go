package config

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

var RabbitMQ *amqp.Connection

const (
	rabbitMaxRetries = 10
	rabbitRetryDelay = 3 * time.Second
)

// InitRabbitMQ dials RabbitMQ, retrying while the broker comes up
func InitRabbitMQ(cfg RabbitMQConfig) error {
	var conn *amqp.Connection
	var err error

	for i := 0; i < rabbitMaxRetries; i++ {
		conn, err = amqp.Dial(cfg.URL())
		if err == nil {
			RabbitMQ = conn
			log.WithField("host", cfg.Host).Info("Successfully connected to RabbitMQ")
			return nil
		}

		if i < rabbitMaxRetries-1 {
			log.WithFields(log.Fields{
				"attempt": i + 1,
				"max":     rabbitMaxRetries,
				"error":   err.Error(),
			}).Warnf("Failed to connect to RabbitMQ, retrying in %v", rabbitRetryDelay)
			time.Sleep(rabbitRetryDelay)
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", rabbitMaxRetries, err)
}

// CloseRabbitMQ closes the shared connection if open
func CloseRabbitMQ() {
	if RabbitMQ != nil {
		RabbitMQ.Close()
	}
}

// PurgeQueue removes all messages from a queue without deleting the queue itself
func PurgeQueue(queueName string) (int, error) {
	if RabbitMQ == nil {
		return 0, errNoRabbitMQ
	}

	ch, err := RabbitMQ.Channel()
	if err != nil {
		return 0, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	n, err := ch.QueuePurge(queueName, false)
	if err != nil {
		return 0, fmt.Errorf("failed to purge queue %s: %w", queueName, err)
	}

	log.WithFields(log.Fields{
		"queue":    queueName,
		"messages": n,
	}).Info("Purged RabbitMQ queue")
	return n, nil
}
