package risk

import (
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// BreakerState is derived on every read, never stored
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// Breaker is the admission gate shared by every trade pipeline
type Breaker interface {
	Check() error
	RecordFailure()
	RecordSuccess()
	State() BreakerState
	IsOpen() bool
	Reset()
}

// Breaker policies selectable from configuration
const (
	PolicyTimeWindow      = "time_window"
	PolicyConsecutiveLoss = "consecutive_loss"
)

// NewBreaker builds the breaker for the named policy
func NewBreaker(policy string, threshold int, recovery time.Duration, maxConsecutiveLosses int) (Breaker, error) {
	switch policy {
	case "", PolicyTimeWindow:
		return NewCircuitBreaker(threshold, recovery), nil
	case PolicyConsecutiveLoss:
		return NewConsecutiveLossBreaker(maxConsecutiveLosses), nil
	default:
		return nil, fmt.Errorf("%w: unknown circuit breaker policy %q", core.ErrConfig, policy)
	}
}

// CircuitBreaker opens after threshold failures and lets a probe through once
// the recovery window since the last failure has elapsed.
type CircuitBreaker struct {
	threshold   int64
	recovery    time.Duration
	failures    atomic.Int64
	lastFailure atomic.Int64 // unix nanos, 0 when none recorded
	now         func() time.Time
}

// NewCircuitBreaker creates a time-window breaker
func NewCircuitBreaker(threshold int, recovery time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: int64(threshold),
		recovery:  recovery,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock, used by tests to move time forward
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

// State recomputes the breaker state from the failure counters
func (cb *CircuitBreaker) State() BreakerState {
	if cb.failures.Load() < cb.threshold {
		return StateClosed
	}
	last := cb.lastFailure.Load()
	if last == 0 {
		return StateOpen
	}
	if cb.now().Sub(time.Unix(0, last)) >= cb.recovery {
		return StateHalfOpen
	}
	return StateOpen
}

// Check fails only while the breaker is open; half-open admits probes
func (cb *CircuitBreaker) Check() error {
	if cb.State() == StateOpen {
		return core.Deny("circuit breaker open (%d failures)", cb.failures.Load())
	}
	return nil
}

// RecordFailure counts a failure and stamps its time
func (cb *CircuitBreaker) RecordFailure() {
	cb.lastFailure.Store(cb.now().UnixNano())
	n := cb.failures.Add(1)
	if n == cb.threshold {
		log.WithFields(log.Fields{
			"failures":  n,
			"threshold": cb.threshold,
			"recovery":  cb.recovery.String(),
		}).Warn("Circuit breaker opened")
	}
}

// RecordSuccess resets the failure count, but only from half-open
func (cb *CircuitBreaker) RecordSuccess() {
	if cb.State() != StateHalfOpen {
		return
	}
	cb.failures.Store(0)
	cb.lastFailure.Store(0)
	log.Info("Circuit breaker closed after successful probe")
}

// IsOpen reports whether admission is currently blocked
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// FailureCount is the current failure counter
func (cb *CircuitBreaker) FailureCount() int64 {
	return cb.failures.Load()
}

// Reset closes the breaker unconditionally
func (cb *CircuitBreaker) Reset() {
	cb.failures.Store(0)
	cb.lastFailure.Store(0)
}

// ConsecutiveLossBreaker trips after a run of losses and stays tripped until Reset
type ConsecutiveLossBreaker struct {
	maxLosses int64
	losses    atomic.Int64
	tripped   atomic.Bool
}

// NewConsecutiveLossBreaker creates a latching breaker
func NewConsecutiveLossBreaker(maxLosses int) *ConsecutiveLossBreaker {
	return &ConsecutiveLossBreaker{maxLosses: int64(maxLosses)}
}

func (b *ConsecutiveLossBreaker) State() BreakerState {
	if b.tripped.Load() {
		return StateOpen
	}
	return StateClosed
}

func (b *ConsecutiveLossBreaker) Check() error {
	if b.tripped.Load() {
		return core.Deny("circuit breaker tripped after %d consecutive losses", b.maxLosses)
	}
	return nil
}

func (b *ConsecutiveLossBreaker) RecordFailure() {
	n := b.losses.Add(1)
	if n >= b.maxLosses && b.tripped.CompareAndSwap(false, true) {
		log.WithFields(log.Fields{
			"consecutive_losses": n,
		}).Warn("Circuit breaker tripped")
	}
}

// RecordSuccess resets the loss run; a tripped breaker stays tripped
func (b *ConsecutiveLossBreaker) RecordSuccess() {
	b.losses.Store(0)
}

func (b *ConsecutiveLossBreaker) IsOpen() bool {
	return b.tripped.Load()
}

// ConsecutiveLosses is the length of the current loss run
func (b *ConsecutiveLossBreaker) ConsecutiveLosses() int64 {
	return b.losses.Load()
}

func (b *ConsecutiveLossBreaker) Reset() {
	b.losses.Store(0)
	b.tripped.Store(false)
	log.Info("Circuit breaker reset")
}
