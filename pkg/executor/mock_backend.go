package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// MockBackend is the paper-trading backend. It fails the first FailTimes
// calls and then returns deterministic signatures.
type MockBackend struct {
	FailTimes int64
	Latency   time.Duration

	calls atomic.Int64
}

func (b *MockBackend) ExecuteOrder(ctx context.Context, order core.TradeOrder, priorityFee uint64) (string, error) {
	n := b.calls.Add(1)
	if b.Latency > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(b.Latency):
		}
	}
	if n <= b.FailTimes {
		return "", errors.New("mock backend: simulated failure")
	}
	log.WithFields(log.Fields{
		"order_id":     order.ID,
		"token":        order.Token,
		"priority_fee": priorityFee,
	}).Info("Mock executing order")
	return fmt.Sprintf("mock_tx_%s", order.ID), nil
}

// Calls is the number of ExecuteOrder invocations so far
func (b *MockBackend) Calls() int64 {
	return b.calls.Load()
}

var _ core.ExecutionBackend = (*MockBackend)(nil)
