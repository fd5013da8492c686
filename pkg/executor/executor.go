package executor

import (
	"context"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// DefaultSlippageBps is the slippage tolerance applied to generated orders
const DefaultSlippageBps uint16 = 100

// TradeExecutor turns signals into orders and drives them through the
// ledger, the engine and the backend.
type TradeExecutor struct {
	manager         *TransactionManager
	backend         core.ExecutionBackend
	engine          *Engine
	shield          Shield
	positionSizeSOL float64
	slippageBps     uint16
}

func NewTradeExecutor(manager *TransactionManager, backend core.ExecutionBackend, engine *Engine, shield Shield, positionSizeSOL float64, slippageBps uint16) *TradeExecutor {
	return &TradeExecutor{
		manager:         manager,
		backend:         backend,
		engine:          engine,
		shield:          shield,
		positionSizeSOL: positionSizeSOL,
		slippageBps:     slippageBps,
	}
}

// ExecuteSignal builds an order from the signal and executes it.
// Hold signals are skipped and yield a nil result.
func (x *TradeExecutor) ExecuteSignal(ctx context.Context, signal core.Signal) (*core.TradeResult, error) {
	var kind core.OrderKind
	switch signal.Kind {
	case core.SignalBuy:
		kind = core.OrderBuy
	case core.SignalSell:
		kind = core.OrderSell
	default:
		log.WithField("token", signal.Token).Info("Hold signal, skipping")
		return nil, nil
	}
	order := core.NewTradeOrder(signal.ID, signal.Token, kind, x.positionSizeSOL, x.slippageBps)
	result, err := x.ExecuteOrder(ctx, order)
	return &result, err
}

// ExecuteOrder submits the order, sends it with retries and completes it in the ledger
func (x *TradeExecutor) ExecuteOrder(ctx context.Context, order core.TradeOrder) (core.TradeResult, error) {
	id := x.manager.Submit(order)

	sig, err := x.engine.Execute(ctx, string(order.Kind), func(ctx context.Context, fee uint64) (string, error) {
		sig, err := x.backend.ExecuteOrder(ctx, order, fee)
		if err != nil {
			return "", err
		}
		if err := x.shield.VerifySignature(sig); err != nil {
			return "", err
		}
		return sig, nil
	})
	if err != nil {
		log.WithFields(log.Fields{
			"order_id": id,
			"token":    order.Token,
			"error":    err.Error(),
		}).Warn("Order execution failed")
	}

	result, _ := x.manager.Complete(id, sig, err)
	return result, err
}

// Manager exposes the order ledger
func (x *TradeExecutor) Manager() *TransactionManager {
	return x.manager
}

// PositionSizeSOL is the default order size
func (x *TradeExecutor) PositionSizeSOL() float64 {
	return x.positionSizeSOL
}

// SlippageBps is the slippage tolerance applied to generated orders
func (x *TradeExecutor) SlippageBps() uint16 {
	return x.slippageBps
}
