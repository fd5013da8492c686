package risk

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// PositionManager is the bounded registry of open positions. At most one
// position per token is held, since a sell liquidates the wallet's whole
// token balance.
type PositionManager struct {
	maxPositions int

	mu        sync.RWMutex
	positions map[uuid.UUID]core.Position
	tokens    map[string]uuid.UUID
}

// NewPositionManager creates a registry holding at most maxPositions entries
func NewPositionManager(maxPositions int) *PositionManager {
	return &PositionManager{
		maxPositions: maxPositions,
		positions:    make(map[uuid.UUID]core.Position),
		tokens:       make(map[string]uuid.UUID),
	}
}

// Open registers a position. The capacity, id and token checks and the insert
// happen under one lock.
func (pm *PositionManager) Open(position core.Position) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.positions) >= pm.maxPositions {
		return fmt.Errorf("%w: %d of %d positions open", core.ErrCapacityExceeded, len(pm.positions), pm.maxPositions)
	}
	if _, exists := pm.positions[position.ID]; exists {
		return fmt.Errorf("position %s already open", position.ID)
	}
	if held, exists := pm.tokens[position.Token]; exists {
		return fmt.Errorf("%w: %s by position %s", core.ErrTokenHeld, position.Token, held)
	}
	pm.positions[position.ID] = position
	pm.tokens[position.Token] = position.ID

	log.WithFields(log.Fields{
		"position_id": position.ID,
		"token":       position.Token,
		"size_sol":    position.SizeSOL,
		"open_count":  len(pm.positions),
	}).Info("Position opened")
	return nil
}

// Close removes and returns a position
func (pm *PositionManager) Close(id uuid.UUID) (core.Position, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	position, exists := pm.positions[id]
	if !exists {
		return core.Position{}, fmt.Errorf("position %s: %w", id, core.ErrNotFound)
	}
	delete(pm.positions, id)
	delete(pm.tokens, position.Token)

	log.WithFields(log.Fields{
		"position_id": id,
		"token":       position.Token,
		"open_count":  len(pm.positions),
	}).Info("Position closed")
	return position, nil
}

// Get looks up a position without removing it
func (pm *PositionManager) Get(id uuid.UUID) (core.Position, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	position, exists := pm.positions[id]
	return position, exists
}

// HoldsToken reports whether a position is open in token
func (pm *PositionManager) HoldsToken(token string) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	_, held := pm.tokens[token]
	return held
}

func (pm *PositionManager) OpenCount() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.positions)
}

func (pm *PositionManager) MaxPositions() int {
	return pm.maxPositions
}

// All returns a snapshot of the open positions
func (pm *PositionManager) All() []core.Position {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	all := make([]core.Position, 0, len(pm.positions))
	for _, p := range pm.positions {
		all = append(all, p)
	}
	return all
}
