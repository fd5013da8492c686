// Package schedule registers the periodic jobs of the control plane
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradecontrol/internal/models"
	"tradecontrol/pkg/executor"
	"tradecontrol/pkg/monitor"
	"tradecontrol/pkg/phases"
	"tradecontrol/pkg/risk"
)

const (
	// DailyResetSpec fires at UTC midnight
	DailyResetSpec    = "0 0 0 * * *"
	CampaignCheckSpec = "0 * * * * *"
	MetricsSpec       = "*/15 * * * * *"
)

type job struct {
	name string
	spec string
	fn   func()
}

// Jobs holds what the periodic tasks read and reset
type Jobs struct {
	Guard        *risk.RiskGuard
	Positions    *risk.PositionManager
	Transactions *executor.TransactionManager
	Campaign     *phases.PhaseManager

	// CheckCampaign expires the active phase and starts the next one
	CheckCampaign func()

	// DB is optional; snapshots are skipped without it
	DB           *gorm.DB
	SnapshotSpec string
}

// Start registers every job on a UTC cron with seconds precision and starts it.
// The caller stops the returned cron on shutdown.
func Start(jobs Jobs) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	entries := []job{
		{"daily_reset", DailyResetSpec, jobs.ResetDaily},
		{"campaign_check", CampaignCheckSpec, jobs.checkCampaign},
		{"metrics", MetricsSpec, jobs.RefreshMetrics},
	}
	if jobs.DB != nil && jobs.SnapshotSpec != "" {
		entries = append(entries, job{"risk_snapshot", jobs.SnapshotSpec, func() {
			if err := jobs.SaveSnapshot(); err != nil {
				log.WithError(err).Error("Failed to save risk snapshot")
			}
		}})
	}

	for _, e := range entries {
		if _, err := c.AddFunc(e.spec, e.fn); err != nil {
			return nil, fmt.Errorf("add %s job (%q): %w", e.name, e.spec, err)
		}
		log.WithFields(log.Fields{
			"job":  e.name,
			"spec": e.spec,
		}).Info("Scheduled job registered")
	}

	c.Start()
	return c, nil
}

// ResetDaily zeroes the guard's daily loss counters
func (j Jobs) ResetDaily() {
	before := j.Guard.Status()
	j.Guard.ResetDaily()
	log.WithFields(log.Fields{
		"daily_pnl_sol":  before.DailyPnLSOL,
		"daily_loss_sol": before.DailyLossSOL,
	}).Info("Daily risk counters rolled over")
}

func (j Jobs) checkCampaign() {
	if j.CheckCampaign != nil {
		j.CheckCampaign()
	}
}

// RefreshMetrics pushes the gauges that are not updated on the hot path
func (j Jobs) RefreshMetrics() {
	monitor.SetOpenPositions(j.Positions.OpenCount())
	monitor.SetPendingOrders(j.Transactions.PendingCount())
	monitor.SetDailyPnL(j.Guard.Status().DailyPnLSOL)
}

// Snapshot captures the admission state at now
func (j Jobs) Snapshot(now time.Time) models.RiskSnapshot {
	status := j.Guard.Status()
	return models.RiskSnapshot{
		Halted:        status.Halted,
		BreakerState:  string(status.BreakerState),
		DailyPnLSOL:   status.DailyPnLSOL,
		DailyLossSOL:  status.DailyLossSOL,
		OpenPositions: j.Positions.OpenCount(),
		PendingOrders: j.Transactions.PendingCount(),
		CampaignPhase: j.Campaign.CurrentPhaseName(),
		SnapshotAt:    now.UTC(),
	}
}

// SaveSnapshot writes one risk snapshot row
func (j Jobs) SaveSnapshot() error {
	snapshot := j.Snapshot(time.Now())
	if err := j.DB.Create(&snapshot).Error; err != nil {
		return fmt.Errorf("insert risk snapshot: %w", err)
	}
	log.WithFields(log.Fields{
		"halted":         snapshot.Halted,
		"open_positions": snapshot.OpenPositions,
		"phase":          snapshot.CampaignPhase,
	}).Debug("Risk snapshot saved")
	return nil
}
