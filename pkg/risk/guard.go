package risk

import (
	"sync/atomic"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// LamportsPerSOL is the fixed SOL denomination
const LamportsPerSOL = 1_000_000_000

// GuardConfig holds the admission thresholds
type GuardConfig struct {
	MaxDailyLossSOL     float64
	ConfidenceThreshold float64
}

// RiskGuard is the single admission choke point. It combines the breaker,
// the daily ledger, an atomic lamport loss counter and a confidence floor.
type RiskGuard struct {
	config  GuardConfig
	breaker Breaker
	daily   *DailyLimits

	maxLossLamports   uint64
	dailyLossLamports atomic.Uint64
}

// NewRiskGuard wires a guard around a breaker and daily ledger
func NewRiskGuard(config GuardConfig, breaker Breaker, daily *DailyLimits) *RiskGuard {
	return &RiskGuard{
		config:          config,
		breaker:         breaker,
		daily:           daily,
		maxLossLamports: SOLToLamports(config.MaxDailyLossSOL),
	}
}

// Approve admits or denies a signal. Capacity is not checked here; it is
// enforced when the position is opened.
func (g *RiskGuard) Approve(signal core.Signal) error {
	if err := g.breaker.Check(); err != nil {
		g.logDenied(signal, err)
		return err
	}
	if err := g.daily.Check(); err != nil {
		g.logDenied(signal, err)
		return err
	}
	if loss := g.dailyLossLamports.Load(); loss >= g.maxLossLamports {
		err := core.Deny("daily loss %d lamports reached ceiling %d", loss, g.maxLossLamports)
		g.logDenied(signal, err)
		return err
	}
	if signal.Confidence < g.config.ConfidenceThreshold {
		err := core.Deny("confidence %.3f below threshold %.3f", signal.Confidence, g.config.ConfidenceThreshold)
		g.logDenied(signal, err)
		return err
	}

	log.WithFields(log.Fields{
		"signal_id":  signal.ID,
		"token":      signal.Token,
		"confidence": signal.Confidence,
	}).Debug("Signal approved")
	return nil
}

// RecordLoss books a realized loss given as a positive SOL amount
func (g *RiskGuard) RecordLoss(amountSOL float64) {
	if amountSOL < 0 {
		amountSOL = -amountSOL
	}
	total := g.dailyLossLamports.Add(SOLToLamports(amountSOL))
	g.daily.RecordTradePnL(-amountSOL)
	g.breaker.RecordFailure()

	log.WithFields(log.Fields{
		"loss_sol":            amountSOL,
		"daily_loss_lamports": total,
		"breaker_state":       g.breaker.State(),
	}).Warn("Loss recorded")
}

// RecordWin books a realized profit given as a positive SOL amount
func (g *RiskGuard) RecordWin(amountSOL float64) {
	if amountSOL < 0 {
		amountSOL = -amountSOL
	}
	g.daily.RecordTradePnL(amountSOL)
	g.breaker.RecordSuccess()

	log.WithFields(log.Fields{
		"profit_sol": amountSOL,
	}).Info("Win recorded")
}

// RecordTradePnL dispatches a signed PnL to RecordWin or RecordLoss
func (g *RiskGuard) RecordTradePnL(pnlSOL float64) {
	if pnlSOL < 0 {
		g.RecordLoss(-pnlSOL)
		return
	}
	g.RecordWin(pnlSOL)
}

// IsHalted is true while the breaker is open or the daily ceiling is breached
func (g *RiskGuard) IsHalted() bool {
	if g.breaker.IsOpen() {
		return true
	}
	if g.daily.Check() != nil {
		return true
	}
	return g.dailyLossLamports.Load() >= g.maxLossLamports
}

// Reset closes the breaker
func (g *RiskGuard) Reset() {
	g.breaker.Reset()
}

// ResetDaily zeroes the lamport loss counter and the day's PnL ledger, lifting
// a daily-loss halt
func (g *RiskGuard) ResetDaily() {
	prevPnL := g.daily.DailyPnL()
	g.daily.Reset()
	prev := g.dailyLossLamports.Swap(0)
	log.WithFields(log.Fields{
		"previous_loss_lamports": prev,
		"previous_pnl_sol":       prevPnL,
	}).Info("Daily loss counters reset")
}

// Status is a point-in-time view of the guard
type Status struct {
	Halted              bool         `json:"halted"`
	BreakerState        BreakerState `json:"breaker_state"`
	DailyPnLSOL         float64      `json:"daily_pnl_sol"`
	DailyLossSOL        float64      `json:"daily_loss_sol"`
	MaxDailyLossSOL     float64      `json:"max_daily_loss_sol"`
	ConfidenceThreshold float64      `json:"confidence_threshold"`
}

// Status snapshots the guard for reporting
func (g *RiskGuard) Status() Status {
	return Status{
		Halted:              g.IsHalted(),
		BreakerState:        g.breaker.State(),
		DailyPnLSOL:         g.daily.DailyPnL(),
		DailyLossSOL:        LamportsToSOL(g.dailyLossLamports.Load()),
		MaxDailyLossSOL:     g.config.MaxDailyLossSOL,
		ConfidenceThreshold: g.config.ConfidenceThreshold,
	}
}

func (g *RiskGuard) logDenied(signal core.Signal, err error) {
	log.WithFields(log.Fields{
		"signal_id":  signal.ID,
		"token":      signal.Token,
		"confidence": signal.Confidence,
		"reason":     err.Error(),
	}).Info("Signal denied")
}

// SOLToLamports converts without float rounding drift
func SOLToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(decimal.NewFromFloat(sol).Shift(9).Round(0).IntPart())
}

// LamportsToSOL converts lamports back to SOL
func LamportsToSOL(lamports uint64) float64 {
	f, _ := decimal.NewFromInt(int64(lamports)).Shift(-9).Float64()
	return f
}

var _ core.RiskEngine = (*RiskGuard)(nil)
