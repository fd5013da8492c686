package phases

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// ErrNoMorePhases is returned when the campaign has run through every phase
var ErrNoMorePhases = errors.New("no more phases available")

// PhaseState is the lifecycle of one campaign phase
type PhaseState string

const (
	PhaseInactive  PhaseState = "inactive"
	PhaseActive    PhaseState = "active"
	PhasePaused    PhaseState = "paused"
	PhaseCompleted PhaseState = "completed"
	PhaseFailed    PhaseState = "failed"
)

// PhaseConfig describes one campaign phase
type PhaseConfig struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	MaxTrades      int      `json:"max_trades"`
	MaxPositionSOL float64  `json:"max_position_sol"`
	MinConfidence  float64  `json:"min_confidence"`
	DurationHours  *float64 `json:"duration_hours,omitempty"`
}

// Validate checks a phase config for obviously broken values
func (c PhaseConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: phase name is required", core.ErrConfig)
	}
	if c.MaxTrades < 0 || c.MaxPositionSOL < 0 {
		return fmt.Errorf("%w: phase %s has negative limits", core.ErrConfig, c.Name)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: phase %s min_confidence must be within [0, 1]", core.ErrConfig, c.Name)
	}
	if c.DurationHours != nil && *c.DurationHours <= 0 {
		return fmt.Errorf("%w: phase %s duration must be positive", core.ErrConfig, c.Name)
	}
	return nil
}

// CampaignPhase is a snapshot of a phase and its progress
type CampaignPhase struct {
	Config         PhaseConfig `json:"config"`
	State          PhaseState  `json:"state"`
	TradesExecuted int         `json:"trades_executed"`
	TradesReserved int         `json:"trades_reserved"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	EndedAt        *time.Time  `json:"ended_at,omitempty"`
	FailureReason  string      `json:"failure_reason,omitempty"`
}

func (p *CampaignPhase) finish(state PhaseState, now time.Time) {
	p.State = state
	p.EndedAt = &now
}

// PhaseManager runs the ordered phases of a trading campaign
type PhaseManager struct {
	mu      sync.RWMutex
	phases  []*CampaignPhase
	current int
	now     func() time.Time
}

// NewPhaseManager creates an empty campaign
func NewPhaseManager() *PhaseManager {
	return &PhaseManager{current: -1, now: time.Now}
}

// WithClock replaces the wall clock used for phase timing
func (m *PhaseManager) WithClock(now func() time.Time) *PhaseManager {
	m.now = now
	return m
}

// AddPhase appends a phase in the Inactive state
func (m *PhaseManager) AddPhase(config PhaseConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phases = append(m.phases, &CampaignPhase{Config: config, State: PhaseInactive})

	log.WithFields(log.Fields{
		"phase":      config.Name,
		"max_trades": config.MaxTrades,
	}).Info("Campaign phase added")
	return nil
}

// StartNextPhase activates the next phase. While the current phase is
// Active it returns that phase's name unchanged.
func (m *PhaseManager) StartNextPhase() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current >= 0 {
		cur := m.phases[m.current]
		switch cur.State {
		case PhaseActive:
			log.WithField("phase", cur.Config.Name).Warn("Phase is still active")
			return cur.Config.Name, nil
		case PhasePaused:
			return "", fmt.Errorf("%w: phase %s is paused", core.ErrPhaseViolation, cur.Config.Name)
		}
	}

	next := m.current + 1
	if next >= len(m.phases) {
		return "", ErrNoMorePhases
	}
	now := m.now()
	phase := m.phases[next]
	phase.State = PhaseActive
	phase.StartedAt = &now
	m.current = next

	log.WithField("phase", phase.Config.Name).Info("Campaign phase started")
	return phase.Config.Name, nil
}

// Slot is one trade admitted against a phase quota. It must be settled with
// RecordTrade once the buy lands, or Release when it does not.
type Slot struct {
	SizeSOL float64

	phase *CampaignPhase
}

// Admit checks a trade against the active phase and reserves a quota slot
func (m *PhaseManager) Admit(confidence, requestedSOL float64) (Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	phase := m.activeLocked()
	if phase == nil {
		return Slot{}, core.Deny("no active campaign phase")
	}
	if confidence < phase.Config.MinConfidence {
		return Slot{}, core.Deny("confidence %.3f below phase %s minimum %.3f", confidence, phase.Config.Name, phase.Config.MinConfidence)
	}
	if phase.Config.MaxTrades > 0 && phase.TradesExecuted+phase.TradesReserved >= phase.Config.MaxTrades {
		return Slot{}, core.Deny("phase %s trade quota reached", phase.Config.Name)
	}
	size := requestedSOL
	if phase.Config.MaxPositionSOL > 0 && size > phase.Config.MaxPositionSOL {
		size = phase.Config.MaxPositionSOL
	}
	phase.TradesReserved++
	return Slot{SizeSOL: size, phase: phase}, nil
}

// Release returns an unused slot to its phase
func (m *PhaseManager) Release(slot Slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if phase := slot.phase; phase != nil && phase.TradesReserved > 0 {
		phase.TradesReserved--
	}
}

// RecordTrade counts an executed trade against the phase that admitted it.
// The phase completes once its quota is met.
func (m *PhaseManager) RecordTrade(slot Slot) (completed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	phase := slot.phase
	if phase == nil {
		return false, fmt.Errorf("%w: trade slot has no campaign phase", core.ErrPhaseViolation)
	}
	if phase.TradesReserved > 0 {
		phase.TradesReserved--
	}
	phase.TradesExecuted++
	open := phase.State == PhaseActive || phase.State == PhasePaused
	if open && phase.Config.MaxTrades > 0 && phase.TradesExecuted >= phase.Config.MaxTrades {
		phase.finish(PhaseCompleted, m.now())
		log.WithFields(log.Fields{
			"phase":  phase.Config.Name,
			"trades": phase.TradesExecuted,
		}).Info("Campaign phase completed, trade quota reached")
		return true, nil
	}
	return false, nil
}

// CheckExpiry completes the active phase once its duration has elapsed
func (m *PhaseManager) CheckExpiry() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	phase := m.activeLocked()
	if phase == nil || phase.Config.DurationHours == nil || phase.StartedAt == nil {
		return false
	}
	limit := time.Duration(*phase.Config.DurationHours * float64(time.Hour))
	now := m.now()
	if now.Sub(*phase.StartedAt) < limit {
		return false
	}
	phase.finish(PhaseCompleted, now)
	log.WithField("phase", phase.Config.Name).Info("Campaign phase completed, duration elapsed")
	return true
}

// Pause suspends the active phase
func (m *PhaseManager) Pause() error {
	return m.transition(PhaseActive, PhasePaused)
}

// Resume reactivates a paused phase
func (m *PhaseManager) Resume() error {
	return m.transition(PhasePaused, PhaseActive)
}

// Fail marks the current phase failed so the campaign can move on
func (m *PhaseManager) Fail(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current < 0 {
		return fmt.Errorf("%w: campaign not started", core.ErrPhaseViolation)
	}
	phase := m.phases[m.current]
	if phase.State != PhaseActive && phase.State != PhasePaused {
		return fmt.Errorf("%w: phase %s is %s", core.ErrPhaseViolation, phase.Config.Name, phase.State)
	}
	phase.finish(PhaseFailed, m.now())
	phase.FailureReason = reason
	log.WithFields(log.Fields{
		"phase":  phase.Config.Name,
		"reason": reason,
	}).Warn("Campaign phase failed")
	return nil
}

func (m *PhaseManager) transition(from, to PhaseState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current < 0 {
		return fmt.Errorf("%w: campaign not started", core.ErrPhaseViolation)
	}
	phase := m.phases[m.current]
	if phase.State != from {
		return fmt.Errorf("%w: phase %s is %s, expected %s", core.ErrPhaseViolation, phase.Config.Name, phase.State, from)
	}
	phase.State = to
	log.WithFields(log.Fields{
		"phase": phase.Config.Name,
		"state": to,
	}).Info("Campaign phase state changed")
	return nil
}

// Current returns a snapshot of the current phase
func (m *PhaseManager) Current() (CampaignPhase, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current < 0 {
		return CampaignPhase{}, false
	}
	return *m.phases[m.current], true
}

// CurrentPhaseName is empty before the campaign starts
func (m *PhaseManager) CurrentPhaseName() string {
	if p, ok := m.Current(); ok {
		return p.Config.Name
	}
	return ""
}

func (m *PhaseManager) PhaseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.phases)
}

// Phases returns snapshots of every configured phase
func (m *PhaseManager) Phases() []CampaignPhase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CampaignPhase, 0, len(m.phases))
	for _, p := range m.phases {
		out = append(out, *p)
	}
	return out
}

func (m *PhaseManager) activeLocked() *CampaignPhase {
	if m.current < 0 {
		return nil
	}
	if phase := m.phases[m.current]; phase.State == PhaseActive {
		return phase
	}
	return nil
}
