package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecontrol/internal/core"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

type flakySender struct {
	failures int
	calls    int
	fees     []uint64
}

func (s *flakySender) Send(ctx context.Context, payload []byte, fee uint64) (string, error) {
	s.calls++
	s.fees = append(s.fees, fee)
	if s.calls <= s.failures {
		return "", errors.New("send failed")
	}
	return "sig_ok", nil
}

func TestFeeCalculator(t *testing.T) {
	t.Run("Non-Positive Multiplier Yields Zero", func(t *testing.T) {
		assert.Equal(t, uint64(0), NewFeeCalculator(1000, -1.5, 5000).ComputeFee())
		assert.Equal(t, uint64(0), NewFeeCalculator(1000, 0, 5000).ComputeFee())
	})

	t.Run("Huge Multiplier Is Capped", func(t *testing.T) {
		assert.Equal(t, uint64(5000), NewFeeCalculator(1000, 1e30, 5000).ComputeFee())
	})

	t.Run("Default Fee", func(t *testing.T) {
		assert.Equal(t, uint64(1750), DefaultFeeCalculator().ComputeFee())
	})

	t.Run("Capped At Maximum", func(t *testing.T) {
		f := NewFeeCalculator(100_000, 3.0, 50_000)
		assert.Equal(t, uint64(50_000), f.ComputeFee())
	})

	t.Run("Check Fee", func(t *testing.T) {
		f := NewFeeCalculator(1000, 1.0, 5000)
		assert.NoError(t, f.CheckFee(5000))
		assert.ErrorIs(t, f.CheckFee(5001), core.ErrExecutionFailed)
	})
}

func TestRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 100*time.Millisecond, p.NextDelay(0))
	assert.Equal(t, 200*time.Millisecond, p.NextDelay(1))
	assert.Equal(t, 400*time.Millisecond, p.NextDelay(2))
	assert.Equal(t, 5*time.Second, p.NextDelay(10))
	assert.Equal(t, 5*time.Second, p.NextDelay(1000))
}

func TestEngine(t *testing.T) {
	t.Run("Retries Then Succeeds", func(t *testing.T) {
		sender := &flakySender{failures: 2}
		sleeper := &recordingSleeper{}
		engine := NewEngine(DefaultFeeCalculator(), DefaultRetryPolicy(), 0, sender).WithSleeper(sleeper.Sleep)

		sig, err := engine.SendTransaction(context.Background(), []byte{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, "sig_ok", sig)
		assert.Equal(t, 3, sender.calls)
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.delays)
		assert.Equal(t, []uint64{1750, 1750, 1750}, sender.fees)
	})

	t.Run("Returns Last Error Without Trailing Sleep", func(t *testing.T) {
		sender := &flakySender{failures: 10}
		sleeper := &recordingSleeper{}
		engine := NewEngine(DefaultFeeCalculator(), DefaultRetryPolicy(), 0, sender).WithSleeper(sleeper.Sleep)

		_, err := engine.SendTransaction(context.Background(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrExecutionFailed)
		assert.Contains(t, err.Error(), "send failed")
		assert.Equal(t, 3, sender.calls)
		assert.Len(t, sleeper.delays, 2)
	})

	t.Run("Sends Capped Fee", func(t *testing.T) {
		sender := &flakySender{}
		engine := NewEngine(NewFeeCalculator(100_000, 3.0, 50_000), DefaultRetryPolicy(), 0, sender)
		_, err := engine.SendTransaction(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, []uint64{50_000}, sender.fees)
	})

	t.Run("Missing Sender", func(t *testing.T) {
		engine := NewEngine(DefaultFeeCalculator(), DefaultRetryPolicy(), 0, nil)
		_, err := engine.SendTransaction(context.Background(), nil)
		assert.ErrorIs(t, err, core.ErrExecutionFailed)
	})

	t.Run("Attempt Timeout Counts As Failure", func(t *testing.T) {
		sleeper := &recordingSleeper{}
		engine := NewEngine(DefaultFeeCalculator(), RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, 10*time.Millisecond, nil).
			WithSleeper(sleeper.Sleep)

		calls := 0
		_, err := engine.Execute(context.Background(), "slow", func(ctx context.Context, fee uint64) (string, error) {
			calls++
			<-ctx.Done()
			return "", ctx.Err()
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 2, calls)
	})

	t.Run("Cancelled Context Stops Retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		engine := NewEngine(DefaultFeeCalculator(), DefaultRetryPolicy(), 0, nil)

		calls := 0
		_, err := engine.Execute(ctx, "cancelled", func(ctx context.Context, fee uint64) (string, error) {
			calls++
			cancel()
			return "", errors.New("boom")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
