// Package orchestrator drives mint events through scoring, filtering,
// admission, execution and exit monitoring.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
	"tradecontrol/pkg/executor"
	"tradecontrol/pkg/monitor"
	"tradecontrol/pkg/phases"
	"tradecontrol/pkg/risk"
	"tradecontrol/pkg/strategy"
	"tradecontrol/pkg/stream"
)

// TradeEventQueue receives position and trade lifecycle events
const TradeEventQueue = "trade_events"

// Alerter delivers operator alerts
type Alerter interface {
	Send(ctx context.Context, alert monitor.Alert) error
}

// OrderRecorder persists every completed order
type OrderRecorder interface {
	RecordOrder(ctx context.Context, order core.TradeOrder, result core.TradeResult) error
}

type Config struct {
	OrderSizeSOL     float64
	SlippageBps      uint16
	MaxConcurrent    int
	ExitPollInterval time.Duration
	EventQueue       string
}

// Deps are the collaborators of the pipeline. Analyzer, SignalFilter,
// Orders, Publisher and Alerts may be nil.
type Deps struct {
	Guard     *risk.RiskGuard
	Positions *risk.PositionManager
	Campaign  *phases.PhaseManager
	Executor  *executor.TradeExecutor
	Pipeline  *stream.SignalPipeline
	Filters   strategy.Chain
	Scorer    *strategy.RiskScorer
	TpSl      strategy.TpSlCalculator
	Prices    core.PriceSource
	Journal   core.Journal
	Analyzer  core.Analyzer
	Orders    OrderRecorder
	Publisher core.EventPublisher
	Alerts    Alerter

	// SignalFilter screens the scored signal before admission
	SignalFilter *strategy.SignalFilter
}

type openTrade struct {
	position core.Position
	signalID uuid.UUID
	tracker  *phases.PhaseTracker
	closing  bool
}

// TradeView is a read-only view of an open trade
type TradeView struct {
	Position core.Position       `json:"position"`
	Phase    phases.TradePhase   `json:"phase"`
	History  []phases.PhaseEvent `json:"history"`
}

// Event is published on every position open and trade close
type Event struct {
	Type      string               `json:"type"`
	Position  *core.Position       `json:"position,omitempty"`
	Trade     *core.CompletedTrade `json:"trade,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

type Orchestrator struct {
	cfg  Config
	deps Deps
	sem  chan struct{}

	mu   sync.Mutex
	open map[uuid.UUID]*openTrade
}

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.ExitPollInterval <= 0 {
		cfg.ExitPollInterval = 5 * time.Second
	}
	if cfg.EventQueue == "" {
		cfg.EventQueue = TradeEventQueue
	}
	return &Orchestrator{
		cfg:  cfg,
		deps: deps,
		sem:  make(chan struct{}, cfg.MaxConcurrent),
		open: make(map[uuid.UUID]*openTrade),
	}
}

// Run consumes the stream until it closes or ctx ends, handling each mint on
// its own goroutine, and watches open positions for exits meanwhile.
func (o *Orchestrator) Run(ctx context.Context, source core.MarketDataStream) {
	exitCtx, stopExits := context.WithCancel(ctx)
	exitsDone := make(chan struct{})
	go func() {
		defer close(exitsDone)
		o.MonitorExits(exitCtx)
	}()

	var wg sync.WaitGroup
	for {
		mint, ok := source.NextSignal(ctx)
		if !ok {
			break
		}
		select {
		case o.sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(mint core.MintSignal) {
			defer wg.Done()
			defer func() { <-o.sem }()
			if _, err := o.HandleMint(ctx, mint); err != nil && !isSkip(err) {
				log.WithFields(log.Fields{
					"mint":  mint.Mint,
					"error": err.Error(),
				}).Warn("Mint pipeline failed")
			}
		}(mint)
	}
	wg.Wait()
	log.Info("Signal stream ended")

	if ctx.Err() == nil {
		// keep managing exits for positions still open
		<-ctx.Done()
	}
	stopExits()
	<-exitsDone
}

func isSkip(err error) bool {
	return errors.Is(err, core.ErrAdmissionDenied) ||
		errors.Is(err, core.ErrCapacityExceeded) ||
		errors.Is(err, core.ErrTokenHeld)
}

// HandleMint runs one mint through the trade lifecycle up to Monitoring.
// Skipped mints return an error matching ErrAdmissionDenied, ErrCapacityExceeded
// or ErrTokenHeld.
func (o *Orchestrator) HandleMint(ctx context.Context, mint core.MintSignal) (*core.Position, error) {
	monitor.SignalReceived()

	base, ok := o.deps.Pipeline.Evaluate(mint)
	if !ok {
		return nil, o.deny("liquidity", core.Deny("mint %s below liquidity floor", mint.Mint))
	}
	if o.deps.Positions.HoldsToken(mint.Mint) {
		return nil, o.deny("token_held", fmt.Errorf("%w: %s", core.ErrTokenHeld, mint.Mint))
	}
	tracker := phases.NewPhaseTracker(base.ID)

	if err := advance(tracker, phases.AiScoring); err != nil {
		return nil, err
	}
	var ai *core.AiScore
	if o.deps.Analyzer != nil {
		scored, ok := o.deps.Analyzer.Analyze(ctx, mint)
		monitor.AIScoreRequest(ok)
		if ok {
			ai = &scored.Score
		}
	}

	if err := advance(tracker, phases.StrategyFiltering); err != nil {
		return nil, err
	}
	if ok, rejectedBy := o.deps.Filters.Passes(mint); !ok {
		return nil, o.deny(rejectedBy, core.Deny("filter %s rejected mint %s", rejectedBy, mint.Mint))
	}
	composite := o.deps.Scorer.Score(base, mint, ai)
	if composite <= strategy.BuyThreshold {
		return nil, o.deny("score", core.Deny("composite score %.3f not above %.2f", composite, strategy.BuyThreshold))
	}
	signal := core.Signal{
		ID:         base.ID,
		Token:      mint.Mint,
		Kind:       core.SignalBuy,
		Confidence: composite,
		Timestamp:  base.Timestamp,
	}
	if o.deps.SignalFilter != nil && !o.deps.SignalFilter.Allows(signal) {
		return nil, o.deny("signal_filter", core.Deny("signal %.3f for %s rejected by signal filter", signal.Confidence, mint.Mint))
	}

	if err := advance(tracker, phases.RiskCheck); err != nil {
		return nil, err
	}
	if err := o.deps.Guard.Approve(signal); err != nil {
		return nil, o.deny("admission", err)
	}
	slot, err := o.deps.Campaign.Admit(signal.Confidence, o.cfg.OrderSizeSOL)
	if err != nil {
		return nil, o.deny("campaign", err)
	}
	booked := false
	defer func() {
		if !booked {
			o.deps.Campaign.Release(slot)
		}
	}()
	size := slot.SizeSOL
	entry, err := o.deps.Prices.Price(ctx, signal.Token)
	if err != nil {
		return nil, o.deny("price", core.Deny("no entry price for %s: %v", signal.Token, err))
	}
	if entry <= 0 {
		return nil, o.deny("price", core.Deny("non-positive entry price for %s", signal.Token))
	}
	levels := o.deps.TpSl.Calculate(signal.Confidence)
	position := core.NewPosition(signal.Token, entry, size, levels.TakeProfitPct, levels.StopLossPct)
	if err := o.deps.Positions.Open(position); err != nil {
		if errors.Is(err, core.ErrTokenHeld) {
			return nil, o.deny("token_held", err)
		}
		return nil, o.deny("capacity", err)
	}

	if err := advance(tracker, phases.OrderSubmitted); err != nil {
		o.abandon(position, err)
		return nil, err
	}
	order := core.NewTradeOrder(signal.ID, signal.Token, core.OrderBuy, size, o.cfg.SlippageBps)
	result, err := o.deps.Executor.ExecuteOrder(ctx, order)
	o.recordOrder(ctx, order, result)
	if err != nil {
		o.abandon(position, err)
		o.alert(ctx, monitor.AlertWarning, fmt.Sprintf("buy %s failed: %v", signal.Token, err))
		return nil, fmt.Errorf("buy %s: %w", signal.Token, err)
	}

	booked = true
	completed, err := o.deps.Campaign.RecordTrade(slot)
	if err != nil {
		log.WithError(err).Warn("Trade executed without a campaign slot")
	}
	if completed {
		o.startNextPhase()
	}
	if err := advance(tracker, phases.PositionOpen); err != nil {
		return nil, err
	}
	if err := advance(tracker, phases.Monitoring); err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.open[position.ID] = &openTrade{position: position, signalID: signal.ID, tracker: tracker}
	o.mu.Unlock()
	monitor.SetOpenPositions(o.deps.Positions.OpenCount())

	log.WithFields(log.Fields{
		"position_id": position.ID,
		"token":       position.Token,
		"entry_price": position.EntryPrice,
		"size_sol":    position.SizeSOL,
		"tp":          position.TakeProfitPct,
		"sl":          position.StopLossPct,
		"signature":   result.Signature,
	}).Info("Position opened and monitoring")
	o.publish(Event{Type: "position_opened", Position: &position, Timestamp: time.Now().UTC()})
	return &position, nil
}

// MonitorExits polls prices of open positions until ctx ends
func (o *Orchestrator) MonitorExits(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.ExitPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.CheckExits(ctx)
		}
	}
}

// CheckExits closes every open position whose take-profit or stop-loss is hit
func (o *Orchestrator) CheckExits(ctx context.Context) int {
	closed := 0
	for _, p := range o.deps.Positions.All() {
		price, err := o.deps.Prices.Price(ctx, p.Token)
		if err != nil {
			log.WithFields(log.Fields{
				"position_id": p.ID,
				"token":       p.Token,
				"error":       err.Error(),
			}).Warn("Failed to price open position")
			continue
		}
		ret := p.ReturnAt(price)
		var reason core.ExitReason
		switch {
		case ret >= p.TakeProfitPct:
			reason = core.ExitTakeProfit
		case ret <= -p.StopLossPct:
			reason = core.ExitStopLoss
		default:
			continue
		}
		if _, err := o.closeAt(ctx, p.ID, price, reason); err == nil {
			closed++
		}
	}
	return closed
}

// ClosePosition sells a position at the current price on operator request
func (o *Orchestrator) ClosePosition(ctx context.Context, id uuid.UUID) (core.CompletedTrade, error) {
	p, ok := o.deps.Positions.Get(id)
	if !ok {
		return core.CompletedTrade{}, fmt.Errorf("position %s: %w", id, core.ErrNotFound)
	}
	price, err := o.deps.Prices.Price(ctx, p.Token)
	if err != nil {
		log.WithFields(log.Fields{
			"position_id": id,
			"error":       err.Error(),
		}).Warn("No exit price, closing at entry price")
		price = p.EntryPrice
	}
	return o.closeAt(ctx, id, price, core.ExitManual)
}

func (o *Orchestrator) closeAt(ctx context.Context, id uuid.UUID, price float64, reason core.ExitReason) (core.CompletedTrade, error) {
	o.mu.Lock()
	t, ok := o.open[id]
	if !ok {
		o.mu.Unlock()
		return core.CompletedTrade{}, fmt.Errorf("position %s: %w", id, core.ErrNotFound)
	}
	if t.closing {
		o.mu.Unlock()
		return core.CompletedTrade{}, fmt.Errorf("%w: position %s is already closing", core.ErrPhaseViolation, id)
	}
	t.closing = true
	o.mu.Unlock()

	order := core.NewTradeOrder(t.signalID, t.position.Token, core.OrderSell, t.position.SizeSOL, o.cfg.SlippageBps)
	result, err := o.deps.Executor.ExecuteOrder(ctx, order)
	o.recordOrder(ctx, order, result)
	if err != nil {
		o.mu.Lock()
		t.closing = false
		o.mu.Unlock()
		o.alert(ctx, monitor.AlertWarning, fmt.Sprintf("sell %s (%s) failed: %v", t.position.Token, reason, err))
		return core.CompletedTrade{}, fmt.Errorf("sell %s: %w", t.position.Token, err)
	}

	if _, err := o.deps.Positions.Close(id); err != nil {
		log.WithError(err).Error("Sold position missing from registry")
	}
	o.mu.Lock()
	delete(o.open, id)
	o.mu.Unlock()

	trade := core.CompleteTrade(t.position, price, reason, result.Signature)
	wasOpen := o.deps.Guard.Status().BreakerState == risk.StateOpen
	o.deps.Guard.RecordTradePnL(trade.PnLSOL)
	if err := advance(t.tracker, phases.TradeClosed); err != nil {
		log.WithError(err).Error("Trade lifecycle out of order")
	}

	if o.deps.Journal != nil {
		if err := o.deps.Journal.Record(ctx, trade); err != nil {
			log.WithError(err).Error("Failed to journal trade")
		}
	}

	status := o.deps.Guard.Status()
	monitor.TradeClosed(trade.PnLSOL)
	monitor.SetOpenPositions(o.deps.Positions.OpenCount())
	monitor.SetDailyPnL(status.DailyPnLSOL)

	log.WithFields(log.Fields{
		"position_id": id,
		"token":       trade.Token,
		"reason":      reason,
		"exit_price":  price,
		"pnl_sol":     trade.PnLSOL,
	}).Info("Trade closed")

	if !wasOpen && status.BreakerState == risk.StateOpen {
		monitor.BreakerTripped()
		o.alert(ctx, monitor.AlertCritical, "circuit breaker opened, trading halted")
	} else if trade.PnLSOL < 0 {
		o.alert(ctx, monitor.AlertWarning, fmt.Sprintf("%s closed by %s with %.4f SOL loss", trade.Token, reason, trade.PnLSOL))
	}
	o.publish(Event{Type: "trade_closed", Trade: &trade, Timestamp: trade.ClosedAt})
	return trade, nil
}

// OpenTrades lists the trades being monitored
func (o *Orchestrator) OpenTrades() []TradeView {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]TradeView, 0, len(o.open))
	for _, t := range o.open {
		view := TradeView{Position: t.position}
		if !t.closing {
			view.Phase = t.tracker.Current()
			view.History = t.tracker.History()
		}
		out = append(out, view)
	}
	return out
}

// CheckCampaign completes an expired phase and moves the campaign on
func (o *Orchestrator) CheckCampaign() {
	if o.deps.Campaign.CheckExpiry() {
		o.startNextPhase()
	}
}

func (o *Orchestrator) startNextPhase() {
	name, err := o.deps.Campaign.StartNextPhase()
	if errors.Is(err, phases.ErrNoMorePhases) {
		log.Info("Campaign finished, no phases left")
		o.alert(context.Background(), monitor.AlertInfo, "campaign finished")
		return
	}
	if err != nil {
		log.WithError(err).Warn("Failed to start next campaign phase")
		return
	}
	o.alert(context.Background(), monitor.AlertInfo, "campaign phase "+name+" started")
}

// abandon releases a position whose buy never went through
func (o *Orchestrator) abandon(position core.Position, cause error) {
	if _, err := o.deps.Positions.Close(position.ID); err != nil {
		log.WithError(err).Error("Failed to release abandoned position")
	}
	log.WithFields(log.Fields{
		"position_id": position.ID,
		"token":       position.Token,
		"reason":      core.ExitFailed,
		"error":       cause.Error(),
	}).Warn("Position abandoned")
}

func (o *Orchestrator) deny(reason string, err error) error {
	monitor.SignalDenied(reason)
	log.WithFields(log.Fields{
		"reason": reason,
		"error":  err.Error(),
	}).Debug("Mint skipped")
	return err
}

func (o *Orchestrator) recordOrder(ctx context.Context, order core.TradeOrder, result core.TradeResult) {
	monitor.OrderCompleted(string(order.Kind), string(result.Status))
	monitor.SetPendingOrders(o.deps.Executor.Manager().PendingCount())
	if o.deps.Orders == nil {
		return
	}
	if err := o.deps.Orders.RecordOrder(ctx, order, result); err != nil {
		log.WithError(err).Warn("Failed to persist order result")
	}
}

func (o *Orchestrator) publish(event Event) {
	if o.deps.Publisher == nil {
		return
	}
	if err := o.deps.Publisher.Publish(o.cfg.EventQueue, event); err != nil {
		log.WithError(err).Warn("Failed to publish trade event")
	}
}

func (o *Orchestrator) alert(ctx context.Context, level monitor.AlertLevel, message string) {
	if o.deps.Alerts == nil {
		return
	}
	if err := o.deps.Alerts.Send(ctx, monitor.Alert{Level: level, Message: message, Source: "orchestrator"}); err != nil {
		log.WithError(err).Warn("Failed to deliver alert")
	}
}

func advance(tracker *phases.PhaseTracker, target phases.TradePhase) error {
	if err := tracker.AdvanceTo(target); err != nil {
		log.WithFields(log.Fields{
			"trade_id": tracker.TradeID(),
			"target":   target.String(),
			"error":    err.Error(),
		}).Error("Phase violation, aborting trade")
		return err
	}
	return nil
}
