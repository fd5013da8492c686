package models

import "time"

// RiskSnapshot is a periodic copy of the admission state
type RiskSnapshot struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Halted        bool      `json:"halted"`
	BreakerState  string    `gorm:"type:varchar(20)" json:"breaker_state"`
	DailyPnLSOL   float64   `gorm:"column:daily_pnl_sol" json:"daily_pnl_sol"`
	DailyLossSOL  float64   `gorm:"column:daily_loss_sol" json:"daily_loss_sol"`
	OpenPositions int       `json:"open_positions"`
	PendingOrders int       `json:"pending_orders"`
	CampaignPhase string    `gorm:"type:varchar(64)" json:"campaign_phase"`
	SnapshotAt    time.Time `gorm:"not null;index" json:"snapshot_at"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (RiskSnapshot) TableName() string {
	return "risk_snapshots"
}
