package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"tradecontrol/pkg/config"
	"tradecontrol/pkg/stream"
)

// The worker follows the pump.fun websocket feed and relays parsed mint
// events onto RabbitMQ for control planes running SIGNAL_SOURCE=amqp.
func main() {
	purge := flag.Bool("purge", false, "drop queued mint events before relaying")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logFile, err := config.SetupLogging(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	if !cfg.RabbitMQ.Enabled() {
		log.Fatal("RABBITMQ_HOST is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.InitRabbitMQ(cfg.RabbitMQ); err != nil {
		log.Fatalf("Failed to initialize RabbitMQ: %v", err)
	}
	defer config.CloseRabbitMQ()

	if *purge {
		// the queue may not be declared yet on a first run
		if _, err := config.PurgeQueue(cfg.Stream.Queue); err != nil {
			log.WithError(err).Warn("Queue purge skipped")
		}
	}

	publisher, err := config.NewPublisher()
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	defer publisher.Close()

	source := stream.NewWebsocketSource(cfg.Stream.WebsocketURL, stream.SubscribeNewToken,
		stream.NewStreamReconnect(cfg.Stream.ReconnectBase, cfg.Stream.ReconnectMax))
	source.Start(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case state := <-source.Status():
				log.WithField("state", state).Info("Feed connection state changed")
			}
		}
	}()

	log.WithFields(log.Fields{
		"feed":  cfg.Stream.WebsocketURL,
		"queue": cfg.Stream.Queue,
	}).Info("Worker started")
	published := stream.Relay(ctx, source, publisher, cfg.Stream.Queue)
	log.WithField("published", published).Info("Worker stopped")
}
