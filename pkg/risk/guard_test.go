package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecontrol/internal/core"
)

func newTestGuard(maxLoss float64) *RiskGuard {
	return NewRiskGuard(
		GuardConfig{MaxDailyLossSOL: maxLoss, ConfidenceThreshold: 0.15},
		NewCircuitBreaker(3, time.Minute),
		NewDailyLimits(maxLoss),
	)
}

func TestRiskGuard(t *testing.T) {
	t.Run("Confidence Threshold", func(t *testing.T) {
		g := newTestGuard(1.0)

		err := g.Approve(core.NewSignal("MintA", core.SignalBuy, 0.10))
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrAdmissionDenied)

		assert.NoError(t, g.Approve(core.NewSignal("MintA", core.SignalBuy, 0.90)))
		assert.NoError(t, g.Approve(core.NewSignal("MintA", core.SignalBuy, 0.15)))
	})

	t.Run("Daily Loss Ceiling", func(t *testing.T) {
		g := newTestGuard(1.0)
		g.RecordLoss(0.5)
		require.NoError(t, g.Approve(core.NewSignal("MintA", core.SignalBuy, 0.9)))

		g.RecordLoss(0.5)
		err := g.Approve(core.NewSignal("MintA", core.SignalBuy, 0.9))
		assert.ErrorIs(t, err, core.ErrAdmissionDenied)
		assert.True(t, g.IsHalted())
	})

	t.Run("Breaker Halts After Losses", func(t *testing.T) {
		g := newTestGuard(100.0)
		for i := 0; i < 3; i++ {
			g.RecordLoss(0.01)
		}
		assert.True(t, g.IsHalted())
		assert.Error(t, g.Approve(core.NewSignal("MintA", core.SignalBuy, 0.9)))

		g.Reset()
		assert.False(t, g.IsHalted())
		assert.NoError(t, g.Approve(core.NewSignal("MintA", core.SignalBuy, 0.9)))
	})

	t.Run("Wins Are Booked", func(t *testing.T) {
		g := newTestGuard(1.0)
		g.RecordWin(0.25)
		g.RecordTradePnL(-0.05)
		status := g.Status()
		assert.InDelta(t, 0.20, status.DailyPnLSOL, 1e-9)
		assert.InDelta(t, 0.05, status.DailyLossSOL, 1e-9)
		assert.False(t, status.Halted)
	})

	t.Run("Reset Daily Clears Lamport Counter", func(t *testing.T) {
		g := NewRiskGuard(
			GuardConfig{MaxDailyLossSOL: 1.0, ConfidenceThreshold: 0.15},
			NewConsecutiveLossBreaker(10),
			NewDailyLimits(5.0),
		)
		g.RecordLoss(1.0)
		require.True(t, g.IsHalted())
		g.ResetDaily()
		assert.False(t, g.IsHalted())
	})

	t.Run("Reset Daily Lifts Ledger Halt", func(t *testing.T) {
		g := newTestGuard(1.0)
		g.RecordLoss(1.5)
		require.Error(t, g.Approve(core.NewSignal("MintA", core.SignalBuy, 0.9)))

		g.ResetDaily()
		assert.False(t, g.IsHalted())
		assert.NoError(t, g.Approve(core.NewSignal("MintA", core.SignalBuy, 0.9)))
		status := g.Status()
		assert.Equal(t, 0.0, status.DailyPnLSOL)
		assert.Equal(t, 0.0, status.DailyLossSOL)
	})
}

func TestLamportConversion(t *testing.T) {
	assert.Equal(t, uint64(1_000_000_000), SOLToLamports(1.0))
	assert.Equal(t, uint64(100_000_000), SOLToLamports(0.1))
	assert.Equal(t, uint64(300_000_000), SOLToLamports(0.1+0.2))
	assert.Equal(t, uint64(0), SOLToLamports(-1))
	assert.InDelta(t, 0.5, LamportsToSOL(500_000_000), 1e-12)
}
