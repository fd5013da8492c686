package executor

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecontrol/internal/core"
)

func newTestExecutor(backend core.ExecutionBackend, shield Shield) (*TradeExecutor, *recordingSleeper) {
	sleeper := &recordingSleeper{}
	engine := NewEngine(DefaultFeeCalculator(), DefaultRetryPolicy(), 0, nil).WithSleeper(sleeper.Sleep)
	return NewTradeExecutor(NewTransactionManager(), backend, engine, shield, 0.5, DefaultSlippageBps), sleeper
}

func TestTradeExecutor(t *testing.T) {
	t.Run("Execute Buy Signal", func(t *testing.T) {
		x, _ := newTestExecutor(&MockBackend{}, NewShield(false))
		signal := core.NewSignal("MintA", core.SignalBuy, 0.9)

		result, err := x.ExecuteSignal(context.Background(), signal)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, core.StatusExecuted, result.Status)
		assert.Contains(t, result.Signature, "mock_tx_")

		results := x.Manager().CompletedResults()
		require.Len(t, results, 1)
		assert.Equal(t, 0, x.Manager().PendingCount())
	})

	t.Run("Skip Hold Signal", func(t *testing.T) {
		backend := &MockBackend{}
		x, _ := newTestExecutor(backend, NewShield(false))

		result, err := x.ExecuteSignal(context.Background(), core.NewSignal("MintA", core.SignalHold, 0.5))
		require.NoError(t, err)
		assert.Nil(t, result)
		assert.Equal(t, 0, x.Manager().PendingCount())
		assert.Empty(t, x.Manager().CompletedResults())
		assert.Equal(t, int64(0), backend.Calls())
	})

	t.Run("Backend Failures Are Retried", func(t *testing.T) {
		backend := &MockBackend{FailTimes: 2}
		x, sleeper := newTestExecutor(backend, NewShield(false))

		result, err := x.ExecuteSignal(context.Background(), core.NewSignal("MintA", core.SignalSell, 0.9))
		require.NoError(t, err)
		assert.Equal(t, core.StatusExecuted, result.Status)
		assert.Equal(t, int64(3), backend.Calls())
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.delays)
	})

	t.Run("Exhausted Retries Record Failure", func(t *testing.T) {
		backend := &MockBackend{FailTimes: 5}
		x, _ := newTestExecutor(backend, NewShield(false))

		result, err := x.ExecuteSignal(context.Background(), core.NewSignal("MintA", core.SignalBuy, 0.9))
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrExecutionFailed)
		assert.Equal(t, core.StatusFailed, result.Status)
		assert.NotEmpty(t, result.Error)
		assert.Equal(t, 0, x.Manager().PendingCount())
	})

	t.Run("Strict Shield Rejects Malformed Signature", func(t *testing.T) {
		backend := &MockBackend{}
		x, _ := newTestExecutor(backend, NewShield(true))

		result, err := x.ExecuteSignal(context.Background(), core.NewSignal("MintA", core.SignalBuy, 0.9))
		require.Error(t, err)
		assert.Equal(t, core.StatusFailed, result.Status)
		assert.Equal(t, int64(3), backend.Calls())
	})
}

func TestShield(t *testing.T) {
	assert.Error(t, NewShield(false).VerifySignature(""))
	assert.NoError(t, NewShield(false).VerifySignature("anything"))
	assert.Error(t, NewShield(true).VerifySignature("not-base58-0OIl"))
	var sig solana.Signature
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	assert.NoError(t, NewShield(true).VerifySignature(sig.String()))
}
