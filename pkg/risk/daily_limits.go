package risk

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// DailyLimits tracks realized PnL (SOL) for the current UTC calendar day
type DailyLimits struct {
	maxDailyLoss float64

	mu  sync.Mutex
	pnl float64
	day time.Time
	now func() time.Time
}

// NewDailyLimits creates a ledger that refuses trading once the day's loss reaches maxDailyLossSOL
func NewDailyLimits(maxDailyLossSOL float64) *DailyLimits {
	d := &DailyLimits{
		maxDailyLoss: maxDailyLossSOL,
		now:          time.Now,
	}
	d.day = truncateDay(d.now())
	return d
}

// WithClock replaces the wall clock and re-anchors the ledger day
func (d *DailyLimits) WithClock(now func() time.Time) *DailyLimits {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
	d.day = truncateDay(now())
	return d
}

// RecordTradePnL adds a signed realized PnL delta after applying day rollover
func (d *DailyLimits) RecordTradePnL(delta float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybeReset()
	d.pnl += delta
}

// Check fails once the day's loss has reached the ceiling
func (d *DailyLimits) Check() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybeReset()
	if -d.pnl >= d.maxDailyLoss {
		return core.Deny("daily loss limit reached: %.4f SOL of %.4f SOL", -d.pnl, d.maxDailyLoss)
	}
	return nil
}

// DailyPnL returns the current day's realized PnL
func (d *DailyLimits) DailyPnL() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybeReset()
	return d.pnl
}

// Reset zeroes the day's PnL on operator request
func (d *DailyLimits) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.day = truncateDay(d.now())
	d.pnl = 0
}

// MaxDailyLoss is the configured ceiling in SOL
func (d *DailyLimits) MaxDailyLoss() float64 {
	return d.maxDailyLoss
}

// maybeReset zeroes the accumulator when the calendar day has changed. Caller holds mu.
func (d *DailyLimits) maybeReset() {
	today := truncateDay(d.now())
	if today.Equal(d.day) {
		return
	}
	log.WithFields(log.Fields{
		"previous_day": d.day.Format("2006-01-02"),
		"previous_pnl": d.pnl,
	}).Info("Daily PnL reset")
	d.day = today
	d.pnl = 0
}

func truncateDay(t time.Time) time.Time {
	y, m, day := t.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
