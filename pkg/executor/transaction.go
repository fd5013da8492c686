package executor

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// TransactionManager is the pending -> completed ledger of submitted orders
type TransactionManager struct {
	mu        sync.RWMutex
	pending   map[uuid.UUID]core.TradeOrder
	completed []core.TradeResult
}

func NewTransactionManager() *TransactionManager {
	return &TransactionManager{
		pending: make(map[uuid.UUID]core.TradeOrder),
	}
}

// Submit records an order as pending and returns its id
func (m *TransactionManager) Submit(order core.TradeOrder) uuid.UUID {
	m.mu.Lock()
	m.pending[order.ID] = order
	m.mu.Unlock()

	log.WithFields(log.Fields{
		"order_id":   order.ID,
		"token":      order.Token,
		"kind":       order.Kind,
		"amount_sol": order.AmountSOL,
	}).Info("Order submitted")
	return order.ID
}

// Complete moves an order out of pending. A nil execErr means executed.
// Unknown ids are ignored and ok is false.
func (m *TransactionManager) Complete(id uuid.UUID, signature string, execErr error) (core.TradeResult, bool) {
	m.mu.Lock()
	order, exists := m.pending[id]
	if !exists {
		m.mu.Unlock()
		log.WithField("order_id", id).Debug("Complete called for unknown order, ignoring")
		return core.TradeResult{}, false
	}
	delete(m.pending, id)

	result := core.TradeResult{
		OrderID:     id,
		CompletedAt: time.Now().UTC(),
	}
	if execErr == nil {
		filled := order.AmountSOL
		result.Status = core.StatusExecuted
		result.Signature = signature
		result.FilledSOL = &filled
	} else {
		result.Status = core.StatusFailed
		result.Error = execErr.Error()
	}
	m.completed = append(m.completed, result)
	m.mu.Unlock()

	log.WithFields(log.Fields{
		"order_id":  id,
		"status":    result.Status,
		"signature": result.Signature,
		"error":     result.Error,
	}).Info("Order completed")
	return result, true
}

// Cancel drops a pending order and records it as cancelled
func (m *TransactionManager) Cancel(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pending[id]; !exists {
		return false
	}
	delete(m.pending, id)
	m.completed = append(m.completed, core.TradeResult{
		OrderID:     id,
		Status:      core.StatusCancelled,
		CompletedAt: time.Now().UTC(),
	})
	return true
}

func (m *TransactionManager) PendingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending)
}

// Pending returns a snapshot of orders still awaiting completion
func (m *TransactionManager) Pending() []core.TradeOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.TradeOrder, 0, len(m.pending))
	for _, order := range m.pending {
		out = append(out, order)
	}
	return out
}

// CompletedResults returns a copy of all results in completion order
func (m *TransactionManager) CompletedResults() []core.TradeResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.TradeResult, len(m.completed))
	copy(out, m.completed)
	return out
}
