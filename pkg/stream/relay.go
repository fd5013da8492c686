package stream

import (
	"bytes"
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// MintSignalQueue carries parsed mint events from the worker to the control plane
const MintSignalQueue = "mint_signals"

// Relay forwards every event from stream onto queue until the stream closes.
// It returns the number of events published.
func Relay(ctx context.Context, stream core.MarketDataStream, publisher core.EventPublisher, queue string) int {
	published := 0
	for {
		sig, ok := stream.NextSignal(ctx)
		if !ok {
			log.WithField("published", published).Info("Relay stopped")
			return published
		}
		if err := publisher.Publish(queue, sig); err != nil {
			log.WithFields(log.Fields{
				"mint":  sig.Mint,
				"queue": queue,
				"error": err,
			}).Error("Failed to relay mint event")
			continue
		}
		published++
	}
}

func unmarshalStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
