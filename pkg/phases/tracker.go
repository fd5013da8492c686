package phases

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// PhaseEvent records entry into a phase
type PhaseEvent struct {
	Phase     TradePhase `json:"phase"`
	EnteredAt time.Time  `json:"entered_at"`
}

// PhaseTracker follows one trade through its lifecycle. It is owned by a
// single pipeline and is not safe for concurrent use.
type PhaseTracker struct {
	tradeID uuid.UUID
	current TradePhase
	history []PhaseEvent
}

// NewPhaseTracker starts a tracker at SignalReceived
func NewPhaseTracker(tradeID uuid.UUID) *PhaseTracker {
	return &PhaseTracker{
		tradeID: tradeID,
		current: SignalReceived,
		history: []PhaseEvent{{Phase: SignalReceived, EnteredAt: time.Now().UTC()}},
	}
}

// Advance moves to the next phase. It fails at the terminal phase.
func (t *PhaseTracker) Advance() (TradePhase, error) {
	next, ok := t.current.Next()
	if !ok {
		return t.current, fmt.Errorf("%w: trade %s already in terminal phase %s", core.ErrPhaseViolation, t.tradeID, t.current)
	}
	t.current = next
	t.history = append(t.history, PhaseEvent{Phase: next, EnteredAt: time.Now().UTC()})

	log.WithFields(log.Fields{
		"trade_id": t.tradeID,
		"phase":    next.String(),
	}).Debug("Trade phase advanced")
	return next, nil
}

// AdvanceTo advances step by step until target is reached. Moving backwards is a violation.
func (t *PhaseTracker) AdvanceTo(target TradePhase) error {
	if target < t.current {
		return fmt.Errorf("%w: trade %s cannot move from %s back to %s", core.ErrPhaseViolation, t.tradeID, t.current, target)
	}
	for t.current < target {
		if _, err := t.Advance(); err != nil {
			return err
		}
	}
	return nil
}

func (t *PhaseTracker) TradeID() uuid.UUID {
	return t.tradeID
}

func (t *PhaseTracker) Current() TradePhase {
	return t.current
}

// History returns a copy of the recorded phase entries
func (t *PhaseTracker) History() []PhaseEvent {
	out := make([]PhaseEvent, len(t.history))
	copy(out, t.history)
	return out
}
