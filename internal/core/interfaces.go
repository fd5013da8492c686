package core

import "context"

// Analyzer scores a mint. ok is false when no score is available
// (timeout, transport error) and the caller falls back to rules.
type Analyzer interface {
	Analyze(ctx context.Context, signal MintSignal) (ScoredSignal, bool)
}

// ExecutionBackend sends one order to the venue and returns its signature
type ExecutionBackend interface {
	ExecuteOrder(ctx context.Context, order TradeOrder, priorityFee uint64) (string, error)
}

// MarketDataStream yields mint events until the context ends or the stream closes
type MarketDataStream interface {
	NextSignal(ctx context.Context) (MintSignal, bool)
}

// RiskEngine is the admission capability exposed to callers outside the control plane
type RiskEngine interface {
	Approve(signal Signal) error
	RecordLoss(amountSOL float64)
	RecordWin(amountSOL float64)
	IsHalted() bool
}

// PriceSource quotes the current price of a token in SOL
type PriceSource interface {
	Price(ctx context.Context, token string) (float64, error)
}

// Journal persists completed trades
type Journal interface {
	Record(ctx context.Context, trade CompletedTrade) error
}

// EventPublisher pushes domain events onto a queue
type EventPublisher interface {
	Publish(queueName string, message interface{}) error
}
