package core

import (
	"time"

	"github.com/google/uuid"
)

// SignalKind is the trading direction a signal suggests
type SignalKind string

const (
	SignalBuy  SignalKind = "buy"
	SignalSell SignalKind = "sell"
	SignalHold SignalKind = "hold"
)

// OrderKind is the side of a submitted order
type OrderKind string

const (
	OrderBuy  OrderKind = "buy"
	OrderSell OrderKind = "sell"
)

// OrderStatus is the ledger state of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusExecuted  OrderStatus = "executed"
	StatusFailed    OrderStatus = "failed"
	StatusCancelled OrderStatus = "cancelled"
)

// Signal is an immutable trading signal for one token
type Signal struct {
	ID         uuid.UUID  `json:"id"`
	Token      string     `json:"token"`
	Kind       SignalKind `json:"kind"`
	Confidence float64    `json:"confidence"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewSignal creates a signal with a fresh id, clamping confidence into [0, 1]
func NewSignal(token string, kind SignalKind, confidence float64) Signal {
	return Signal{
		ID:         uuid.New(),
		Token:      token,
		Kind:       kind,
		Confidence: Clamp01(confidence),
		Timestamp:  time.Now().UTC(),
	}
}

// MintSignal is a market-data event for a freshly launched mint
type MintSignal struct {
	Mint         string    `json:"mint"`
	MarketCapUSD float64   `json:"market_cap_usd"`
	Volume24hUSD float64   `json:"volume_24h_usd"`
	PriceUSD     float64   `json:"price_usd"`
	HolderCount  uint64    `json:"holder_count"`
	LiquidityUSD float64   `json:"liquidity_usd"`
	TopHolderPct float64   `json:"top_holder_pct"`
	Timestamp    time.Time `json:"timestamp"`
}

// AiScore is the analyzer verdict for a mint
type AiScore struct {
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	ShouldBuy  bool    `json:"should_buy"`
}

// ScoredSignal pairs a mint event with its analyzer verdict
type ScoredSignal struct {
	Mint  MintSignal `json:"mint"`
	Score AiScore    `json:"score"`
}

// TradeOrder is a request to trade. It is never mutated after creation.
type TradeOrder struct {
	ID          uuid.UUID `json:"id"`
	SignalID    uuid.UUID `json:"signal_id"`
	Token       string    `json:"token"`
	Kind        OrderKind `json:"kind"`
	AmountSOL   float64   `json:"amount_sol"`
	SlippageBps uint16    `json:"slippage_bps"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTradeOrder creates an order derived from a signal
func NewTradeOrder(signalID uuid.UUID, token string, kind OrderKind, amountSOL float64, slippageBps uint16) TradeOrder {
	return TradeOrder{
		ID:          uuid.New(),
		SignalID:    signalID,
		Token:       token,
		Kind:        kind,
		AmountSOL:   amountSOL,
		SlippageBps: slippageBps,
		CreatedAt:   time.Now().UTC(),
	}
}

// TradeResult is the outcome of one order, created when it leaves the pending state
type TradeResult struct {
	OrderID     uuid.UUID   `json:"order_id"`
	Status      OrderStatus `json:"status"`
	Signature   string      `json:"signature,omitempty"`
	FilledSOL   *float64    `json:"filled_sol,omitempty"`
	Error       string      `json:"error,omitempty"`
	CompletedAt time.Time   `json:"completed_at"`
}

// Position is an open exposure in one token
type Position struct {
	ID            uuid.UUID `json:"id"`
	Token         string    `json:"token"`
	EntryPrice    float64   `json:"entry_price"`
	SizeSOL       float64   `json:"size_sol"`
	TakeProfitPct float64   `json:"take_profit_pct"`
	StopLossPct   float64   `json:"stop_loss_pct"`
	OpenedAt      time.Time `json:"opened_at"`
}

// NewPosition creates a position opened now
func NewPosition(token string, entryPrice, sizeSOL, takeProfitPct, stopLossPct float64) Position {
	return Position{
		ID:            uuid.New(),
		Token:         token,
		EntryPrice:    entryPrice,
		SizeSOL:       sizeSOL,
		TakeProfitPct: takeProfitPct,
		StopLossPct:   stopLossPct,
		OpenedAt:      time.Now().UTC(),
	}
}

// ReturnAt is the fractional return of the position at the given price
func (p Position) ReturnAt(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return price/p.EntryPrice - 1
}

// ExitReason explains why a position was closed
type ExitReason string

const (
	ExitTakeProfit ExitReason = "take_profit"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitManual     ExitReason = "manual"
	ExitFailed     ExitReason = "execution_failed"
)

// CompletedTrade is the journal record of a closed position
type CompletedTrade struct {
	PositionID uuid.UUID  `json:"position_id"`
	Token      string     `json:"token"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	SizeSOL    float64    `json:"size_sol"`
	PnLSOL     float64    `json:"pnl_sol"`
	ExitReason ExitReason `json:"exit_reason"`
	Signature  string     `json:"signature,omitempty"`
	OpenedAt   time.Time  `json:"opened_at"`
	ClosedAt   time.Time  `json:"closed_at"`
}

// CompleteTrade builds the journal record for a position closed at exitPrice
func CompleteTrade(p Position, exitPrice float64, reason ExitReason, signature string) CompletedTrade {
	return CompletedTrade{
		PositionID: p.ID,
		Token:      p.Token,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		SizeSOL:    p.SizeSOL,
		PnLSOL:     p.SizeSOL * p.ReturnAt(exitPrice),
		ExitReason: reason,
		Signature:  signature,
		OpenedAt:   p.OpenedAt,
		ClosedAt:   time.Now().UTC(),
	}
}

// Clamp01 limits v to the closed interval [0, 1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
