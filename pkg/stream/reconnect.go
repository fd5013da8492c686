package stream

import (
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"tradecontrol/pkg/executor"
)

const (
	DefaultReconnectBase = time.Second
	DefaultReconnectMax  = 60 * time.Second
)

// StreamReconnect paces reconnection attempts with the same capped doubling
// used for order retries. It is owned by one connection loop.
type StreamReconnect struct {
	base    time.Duration
	max     time.Duration
	attempt uint32
}

func NewStreamReconnect(base, max time.Duration) *StreamReconnect {
	return &StreamReconnect{base: base, max: max}
}

func DefaultStreamReconnect() *StreamReconnect {
	return NewStreamReconnect(DefaultReconnectBase, DefaultReconnectMax)
}

// NextBackoff returns min(base * 2^attempt, max) and moves to the next attempt
func (r *StreamReconnect) NextBackoff() time.Duration {
	policy := executor.RetryPolicy{BaseDelay: r.base, MaxDelay: r.max}
	delay := policy.NextDelay(int(r.attempt))
	if r.attempt < math.MaxUint32 {
		r.attempt++
	}
	return delay
}

// Reset is called after a successful reconnection
func (r *StreamReconnect) Reset() {
	r.attempt = 0
}

func (r *StreamReconnect) Attempt() uint32 {
	return r.attempt
}

// Wait sleeps for the next backoff or until ctx is done
func (r *StreamReconnect) Wait(ctx context.Context) error {
	attempt := r.attempt
	delay := r.NextBackoff()
	log.WithFields(log.Fields{
		"attempt":  attempt,
		"delay_ms": delay.Milliseconds(),
	}).Warn("Stream reconnect backoff")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		log.Info("Stream reconnect attempting connection")
		return nil
	}
}
