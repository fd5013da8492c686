package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// Sender pushes an encoded transaction to the network
type Sender interface {
	Send(ctx context.Context, payload []byte, priorityFee uint64) (string, error)
}

// AttemptFunc is a single submission attempt carrying the computed priority fee
type AttemptFunc func(ctx context.Context, priorityFee uint64) (string, error)

// Engine wraps submissions in the fee cap and the retry policy
type Engine struct {
	fees           FeeCalculator
	retry          RetryPolicy
	attemptTimeout time.Duration
	sender         Sender
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an engine. attemptTimeout <= 0 disables the per-attempt deadline.
func NewEngine(fees FeeCalculator, retry RetryPolicy, attemptTimeout time.Duration, sender Sender) *Engine {
	return &Engine{
		fees:           fees,
		retry:          retry,
		attemptTimeout: attemptTimeout,
		sender:         sender,
		sleep:          sleepContext,
	}
}

// WithSleeper replaces the backoff sleep, used by tests to observe delays
func (e *Engine) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) *Engine {
	e.sleep = sleep
	return e
}

// SendTransaction sends an encoded payload through the configured Sender
func (e *Engine) SendTransaction(ctx context.Context, payload []byte) (string, error) {
	if e.sender == nil {
		return "", fmt.Errorf("%w: no transaction sender configured", core.ErrExecutionFailed)
	}
	return e.Execute(ctx, "send_transaction", func(ctx context.Context, fee uint64) (string, error) {
		return e.sender.Send(ctx, payload, fee)
	})
}

// Execute runs attempt until it succeeds or the attempt budget is spent.
// It sleeps NextDelay(n) after failed attempt n, never after the last one,
// and returns the last error.
func (e *Engine) Execute(ctx context.Context, operation string, attempt AttemptFunc) (string, error) {
	fee := e.fees.ComputeFee()
	if err := e.fees.CheckFee(fee); err != nil {
		return "", err
	}

	maxAttempts := e.retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	lastErr := errors.New("no attempts made")
	for n := 0; n < maxAttempts; n++ {
		sig, err := e.runAttempt(ctx, attempt, fee)
		if err == nil {
			log.WithFields(log.Fields{
				"operation":    operation,
				"attempt":      n,
				"signature":    sig,
				"priority_fee": fee,
			}).Info("Transaction sent")
			return sig, nil
		}

		lastErr = err
		log.WithFields(log.Fields{
			"operation": operation,
			"attempt":   n,
			"error":     err.Error(),
		}).Warn("Transaction attempt failed")

		if ctx.Err() != nil {
			break
		}
		if n+1 < maxAttempts {
			if err := e.sleep(ctx, e.retry.NextDelay(n)); err != nil {
				return "", fmt.Errorf("%w: %s aborted during backoff: %w", core.ErrExecutionFailed, operation, lastErr)
			}
		}
	}
	return "", fmt.Errorf("%w: %s: %w", core.ErrExecutionFailed, operation, lastErr)
}

func (e *Engine) runAttempt(ctx context.Context, attempt AttemptFunc, fee uint64) (string, error) {
	if e.attemptTimeout <= 0 {
		return attempt(ctx, fee)
	}
	actx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()
	sig, err := attempt(actx, fee)
	if err == nil && actx.Err() != nil {
		// a result that arrived after the deadline is still a failure
		return "", fmt.Errorf("attempt timed out after %s: %w", e.attemptTimeout, actx.Err())
	}
	return sig, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
