package stream

import (
	"context"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// MessageConsumer delivers raw queue messages to a handler until ctx is done.
// A handler error requeues the message.
type MessageConsumer interface {
	Consume(ctx context.Context, handler func([]byte) error) error
}

// AMQPSource reads mint events relayed onto a RabbitMQ queue by the worker
type AMQPSource struct {
	channelSource

	consumer MessageConsumer
	parser   PumpfunParser
}

func NewAMQPSource(consumer MessageConsumer) *AMQPSource {
	return &AMQPSource{
		channelSource: channelSource{out: make(chan core.MintSignal, sourceBuffer)},
		consumer:      consumer,
		parser:        NewPumpfunParser(),
	}
}

// Start consumes in the background; the stream closes when consumption stops
func (s *AMQPSource) Start(ctx context.Context) {
	go func() {
		defer close(s.out)
		err := s.consumer.Consume(ctx, func(body []byte) error {
			sig, err := s.decode(body)
			if err != nil {
				log.WithError(err).Warn("Dropping malformed mint event")
				return nil
			}
			if !s.push(ctx, sig) {
				return ctx.Err()
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Mint event consumer stopped")
		}
	}()
}

// decode accepts both relayed MintSignal JSON and raw pump.fun events
func (s *AMQPSource) decode(body []byte) (core.MintSignal, error) {
	var relayed core.MintSignal
	if err := unmarshalStrict(body, &relayed); err == nil && relayed.Mint != "" {
		return relayed, nil
	}
	return s.parser.Parse(body)
}
