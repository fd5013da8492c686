package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecontrol/internal/core"
	"tradecontrol/pkg/executor"
	"tradecontrol/pkg/monitor"
	"tradecontrol/pkg/phases"
	"tradecontrol/pkg/risk"
	"tradecontrol/pkg/strategy"
	"tradecontrol/pkg/stream"
)

type fakePrices struct {
	mu     sync.Mutex
	prices map[string]float64
}

func (p *fakePrices) Price(_ context.Context, token string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if price, ok := p.prices[token]; ok {
		return price, nil
	}
	return 1.0, nil
}

func (p *fakePrices) set(token string, price float64) {
	p.mu.Lock()
	p.prices[token] = price
	p.mu.Unlock()
}

type memJournal struct {
	mu     sync.Mutex
	trades []core.CompletedTrade
}

func (j *memJournal) Record(_ context.Context, trade core.CompletedTrade) error {
	j.mu.Lock()
	j.trades = append(j.trades, trade)
	j.mu.Unlock()
	return nil
}

type memAlerts struct {
	mu     sync.Mutex
	alerts []monitor.Alert
}

func (a *memAlerts) Send(_ context.Context, alert monitor.Alert) error {
	a.mu.Lock()
	a.alerts = append(a.alerts, alert)
	a.mu.Unlock()
	return nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *memPublisher) Publish(_ string, message interface{}) error {
	p.mu.Lock()
	p.events = append(p.events, message.(Event))
	p.mu.Unlock()
	return nil
}

type stubAnalyzer struct {
	calls int
	score core.AiScore
}

func (a *stubAnalyzer) Analyze(_ context.Context, mint core.MintSignal) (core.ScoredSignal, bool) {
	a.calls++
	return core.ScoredSignal{Mint: mint, Score: a.score}, true
}

type harness struct {
	orch      *Orchestrator
	guard     *risk.RiskGuard
	positions *risk.PositionManager
	campaign  *phases.PhaseManager
	backend   *executor.MockBackend
	prices    *fakePrices
	journal   *memJournal
	alerts    *memAlerts
	publisher *memPublisher
}

func newHarness(t *testing.T, maxPositions int, phaseConfigs ...phases.PhaseConfig) *harness {
	t.Helper()
	if len(phaseConfigs) == 0 {
		phaseConfigs = []phases.PhaseConfig{{Name: "default"}}
	}
	campaign := phases.NewPhaseManager()
	for _, pc := range phaseConfigs {
		require.NoError(t, campaign.AddPhase(pc))
	}
	_, err := campaign.StartNextPhase()
	require.NoError(t, err)

	h := &harness{
		guard: risk.NewRiskGuard(
			risk.GuardConfig{MaxDailyLossSOL: 1.0, ConfidenceThreshold: 0.15},
			risk.NewCircuitBreaker(3, time.Minute),
			risk.NewDailyLimits(1.0),
		),
		positions: risk.NewPositionManager(maxPositions),
		campaign:  campaign,
		backend:   &executor.MockBackend{},
		prices:    &fakePrices{prices: map[string]float64{}},
		journal:   &memJournal{},
		alerts:    &memAlerts{},
		publisher: &memPublisher{},
	}
	engine := executor.NewEngine(executor.DefaultFeeCalculator(), executor.DefaultRetryPolicy(), 0, nil).
		WithSleeper(func(context.Context, time.Duration) error { return nil })
	trader := executor.NewTradeExecutor(executor.NewTransactionManager(), h.backend, engine, executor.NewShield(false), 0.1, executor.DefaultSlippageBps)

	h.orch = New(Config{
		OrderSizeSOL:     0.1,
		SlippageBps:      executor.DefaultSlippageBps,
		MaxConcurrent:    4,
		ExitPollInterval: 10 * time.Millisecond,
	}, Deps{
		Guard:     h.guard,
		Positions: h.positions,
		Campaign:  campaign,
		Executor:  trader,
		Pipeline:  stream.NewSignalPipeline(1_000),
		Filters: strategy.Chain{
			strategy.NewMcapFilter(5_000, 1_000_000),
			strategy.NewRugCheckFilter(5_000, 30, 10),
		},
		Scorer:    strategy.NewRiskScorer(1_000_000),
		TpSl:      strategy.DefaultTpSlCalculator(),
		Prices:    h.prices,
		Journal:   h.journal,
		Publisher: h.publisher,
		Alerts:    h.alerts,
	})
	return h
}

func goodMint(name string) core.MintSignal {
	return core.MintSignal{
		Mint:         name,
		MarketCapUSD: 100_000,
		Volume24hUSD: 800_000,
		LiquidityUSD: 800_000,
		HolderCount:  200,
		TopHolderPct: 10,
		Timestamp:    time.Now().UTC(),
	}
}

func TestHandleMint(t *testing.T) {
	t.Run("Opens Position", func(t *testing.T) {
		h := newHarness(t, 5)

		pos, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		require.NoError(t, err)
		require.NotNil(t, pos)
		assert.Equal(t, "MintA", pos.Token)
		assert.Equal(t, 0.1, pos.SizeSOL)
		assert.Equal(t, 1.0, pos.EntryPrice)
		assert.Equal(t, 1, h.positions.OpenCount())
		assert.Equal(t, int64(1), h.backend.Calls())

		trades := h.orch.OpenTrades()
		require.Len(t, trades, 1)
		assert.Equal(t, phases.Monitoring, trades[0].Phase)
		assert.Len(t, trades[0].History, 7)

		require.Len(t, h.publisher.events, 1)
		assert.Equal(t, "position_opened", h.publisher.events[0].Type)
	})

	t.Run("Analyzer Score Is Used", func(t *testing.T) {
		h := newHarness(t, 5)
		analyzer := &stubAnalyzer{score: core.AiScore{Confidence: 0.9, ShouldBuy: true}}
		h.orch.deps.Analyzer = analyzer

		_, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		require.NoError(t, err)
		assert.Equal(t, 1, analyzer.calls)
	})

	t.Run("Signal Filter Rejects", func(t *testing.T) {
		h := newHarness(t, 5)
		h.orch.deps.SignalFilter = strategy.NewSignalFilter(0.95, core.SignalBuy)

		_, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		assert.ErrorIs(t, err, core.ErrAdmissionDenied)
		assert.Equal(t, int64(0), h.backend.Calls())
		assert.Equal(t, 0, h.positions.OpenCount())
	})

	t.Run("Low Liquidity Skipped", func(t *testing.T) {
		h := newHarness(t, 5)
		mint := goodMint("Thin")
		mint.LiquidityUSD = 500

		_, err := h.orch.HandleMint(context.Background(), mint)
		assert.ErrorIs(t, err, core.ErrAdmissionDenied)
		assert.Equal(t, 0, h.positions.OpenCount())
		assert.Equal(t, int64(0), h.backend.Calls())
	})

	t.Run("Filter Rejection", func(t *testing.T) {
		h := newHarness(t, 5)
		mint := goodMint("FewHolders")
		mint.HolderCount = 2

		_, err := h.orch.HandleMint(context.Background(), mint)
		assert.ErrorIs(t, err, core.ErrAdmissionDenied)
		assert.ErrorContains(t, err, "rugcheck")
	})

	t.Run("Low Score Skipped", func(t *testing.T) {
		h := newHarness(t, 5)
		mint := goodMint("Weak")
		mint.LiquidityUSD = 6_000
		mint.Volume24hUSD = 0
		mint.MarketCapUSD = 900_000

		_, err := h.orch.HandleMint(context.Background(), mint)
		assert.ErrorIs(t, err, core.ErrAdmissionDenied)
		assert.ErrorContains(t, err, "composite score")
	})

	t.Run("Halted Guard Denies", func(t *testing.T) {
		h := newHarness(t, 5)
		h.guard.RecordLoss(1.5)

		_, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		assert.ErrorIs(t, err, core.ErrAdmissionDenied)
		assert.Equal(t, 0, h.positions.OpenCount())
	})

	t.Run("Capacity Exceeded", func(t *testing.T) {
		h := newHarness(t, 1)

		_, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		require.NoError(t, err)
		_, err = h.orch.HandleMint(context.Background(), goodMint("MintB"))
		assert.ErrorIs(t, err, core.ErrCapacityExceeded)
		assert.Equal(t, 1, h.positions.OpenCount())
		assert.Equal(t, int64(1), h.backend.Calls())
	})

	t.Run("Campaign Caps Size And Advances", func(t *testing.T) {
		h := newHarness(t, 5,
			phases.PhaseConfig{Name: "warmup", MaxTrades: 1, MaxPositionSOL: 0.05},
			phases.PhaseConfig{Name: "scale", MaxTrades: 10, MaxPositionSOL: 0.2},
		)

		pos, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		require.NoError(t, err)
		assert.Equal(t, 0.05, pos.SizeSOL)
		assert.Equal(t, "scale", h.campaign.CurrentPhaseName())

		pos, err = h.orch.HandleMint(context.Background(), goodMint("MintB"))
		require.NoError(t, err)
		assert.Equal(t, 0.1, pos.SizeSOL)
	})

	t.Run("Paused Campaign Denies", func(t *testing.T) {
		h := newHarness(t, 5)
		require.NoError(t, h.campaign.Pause())

		_, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		assert.ErrorIs(t, err, core.ErrAdmissionDenied)
	})

	t.Run("Concurrent Mints Respect Phase Quota", func(t *testing.T) {
		h := newHarness(t, 10,
			phases.PhaseConfig{Name: "p1", MaxTrades: 1},
			phases.PhaseConfig{Name: "p2", MaxTrades: 100, MinConfidence: 0.99},
		)
		h.backend.Latency = 50 * time.Millisecond

		var wg sync.WaitGroup
		for _, m := range []string{"M1", "M2", "M3", "M4"} {
			wg.Add(1)
			go func(m string) {
				defer wg.Done()
				_, _ = h.orch.HandleMint(context.Background(), goodMint(m))
			}(m)
		}
		wg.Wait()

		assert.Equal(t, int64(1), h.backend.Calls())
		assert.Equal(t, 1, h.positions.OpenCount())
		all := h.campaign.Phases()
		assert.Equal(t, phases.PhaseCompleted, all[0].State)
		assert.Equal(t, 1, all[0].TradesExecuted)
		assert.Equal(t, 0, all[0].TradesReserved)
		assert.Equal(t, phases.PhaseActive, all[1].State)
		assert.Equal(t, 0, all[1].TradesExecuted)
	})

	t.Run("Held Token Denied", func(t *testing.T) {
		h := newHarness(t, 5)

		_, err := h.orch.HandleMint(context.Background(), goodMint("SameMint"))
		require.NoError(t, err)
		_, err = h.orch.HandleMint(context.Background(), goodMint("SameMint"))
		assert.ErrorIs(t, err, core.ErrTokenHeld)
		assert.True(t, isSkip(err))
		assert.Equal(t, 1, h.positions.OpenCount())
		assert.Equal(t, int64(1), h.backend.Calls())
	})

	t.Run("Concurrent Mints Of One Token", func(t *testing.T) {
		h := newHarness(t, 5)
		h.backend.Latency = 20 * time.Millisecond

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = h.orch.HandleMint(context.Background(), goodMint("SameMint"))
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, h.positions.OpenCount())
		assert.Equal(t, int64(1), h.backend.Calls())
		current, _ := h.campaign.Current()
		assert.Equal(t, 1, current.TradesExecuted)
		assert.Equal(t, 0, current.TradesReserved, "denied mints release their slots")
	})

	t.Run("Buy Failure Releases Position", func(t *testing.T) {
		h := newHarness(t, 5)
		h.backend.FailTimes = 100

		_, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		assert.ErrorIs(t, err, core.ErrExecutionFailed)
		assert.Equal(t, 0, h.positions.OpenCount())
		current, _ := h.campaign.Current()
		assert.Equal(t, 0, current.TradesReserved)
		assert.Equal(t, 0, current.TradesExecuted)
		assert.Empty(t, h.orch.OpenTrades())
		require.NotEmpty(t, h.alerts.alerts)
		assert.Equal(t, monitor.AlertWarning, h.alerts.alerts[0].Level)
	})
}

func TestExits(t *testing.T) {
	t.Run("Take Profit", func(t *testing.T) {
		h := newHarness(t, 5)
		pos, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		require.NoError(t, err)

		assert.Equal(t, 0, h.orch.CheckExits(context.Background()))
		h.prices.set("MintA", 2.0)
		assert.Equal(t, 1, h.orch.CheckExits(context.Background()))

		require.Len(t, h.journal.trades, 1)
		trade := h.journal.trades[0]
		assert.Equal(t, pos.ID, trade.PositionID)
		assert.Equal(t, core.ExitTakeProfit, trade.ExitReason)
		assert.InDelta(t, 0.1, trade.PnLSOL, 1e-9)
		assert.InDelta(t, 0.1, h.guard.Status().DailyPnLSOL, 1e-9)
		assert.Equal(t, 0, h.positions.OpenCount())
		assert.Empty(t, h.orch.OpenTrades())
		assert.Equal(t, int64(2), h.backend.Calls())
		assert.Equal(t, "trade_closed", h.publisher.events[len(h.publisher.events)-1].Type)
	})

	t.Run("Stop Loss", func(t *testing.T) {
		h := newHarness(t, 5)
		_, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		require.NoError(t, err)

		h.prices.set("MintA", 0.5)
		assert.Equal(t, 1, h.orch.CheckExits(context.Background()))

		require.Len(t, h.journal.trades, 1)
		assert.Equal(t, core.ExitStopLoss, h.journal.trades[0].ExitReason)
		assert.InDelta(t, -0.05, h.journal.trades[0].PnLSOL, 1e-9)
		assert.InDelta(t, 0.05, h.guard.Status().DailyLossSOL, 1e-9)
	})

	t.Run("Three Losses Open The Breaker", func(t *testing.T) {
		h := newHarness(t, 5)
		for _, m := range []string{"A", "B", "C"} {
			_, err := h.orch.HandleMint(context.Background(), goodMint(m))
			require.NoError(t, err)
			h.prices.set(m, 0.8)
		}
		assert.Equal(t, 3, h.orch.CheckExits(context.Background()))
		assert.True(t, h.guard.IsHalted())

		var critical bool
		for _, a := range h.alerts.alerts {
			if a.Level == monitor.AlertCritical {
				critical = true
			}
		}
		assert.True(t, critical)

		_, err := h.orch.HandleMint(context.Background(), goodMint("D"))
		assert.ErrorIs(t, err, core.ErrAdmissionDenied)
	})

	t.Run("Manual Close", func(t *testing.T) {
		h := newHarness(t, 5)
		pos, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		require.NoError(t, err)

		h.prices.set("MintA", 1.1)
		trade, err := h.orch.ClosePosition(context.Background(), pos.ID)
		require.NoError(t, err)
		assert.Equal(t, core.ExitManual, trade.ExitReason)
		assert.InDelta(t, 1.1, trade.ExitPrice, 1e-9)

		_, err = h.orch.ClosePosition(context.Background(), pos.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("Failed Sell Keeps Position", func(t *testing.T) {
		h := newHarness(t, 5)
		pos, err := h.orch.HandleMint(context.Background(), goodMint("MintA"))
		require.NoError(t, err)

		h.backend.FailTimes = 100
		_, err = h.orch.ClosePosition(context.Background(), pos.ID)
		assert.ErrorIs(t, err, core.ErrExecutionFailed)
		assert.Equal(t, 1, h.positions.OpenCount())
		require.Len(t, h.orch.OpenTrades(), 1)
		assert.Equal(t, phases.Monitoring, h.orch.OpenTrades()[0].Phase)
		assert.Empty(t, h.journal.trades)
	})
}

func TestCheckCampaign(t *testing.T) {
	hours := 1.0
	h := newHarness(t, 5,
		phases.PhaseConfig{Name: "timed", DurationHours: &hours},
		phases.PhaseConfig{Name: "next"},
	)
	now := time.Now()
	h.campaign.WithClock(func() time.Time { return now })

	h.orch.CheckCampaign()
	assert.Equal(t, "timed", h.campaign.CurrentPhaseName())

	now = now.Add(2 * time.Hour)
	h.orch.CheckCampaign()
	assert.Equal(t, "next", h.campaign.CurrentPhaseName())
}

func TestRun(t *testing.T) {
	h := newHarness(t, 5)
	source := stream.NewSliceSource(goodMint("A"), goodMint("B"), goodMint("C"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.orch.Run(ctx, source)
		close(done)
	}()

	assert.Eventually(t, func() bool { return h.positions.OpenCount() == 3 }, time.Second, 5*time.Millisecond)
	h.prices.set("B", 3.0)
	assert.Eventually(t, func() bool { return h.positions.OpenCount() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
