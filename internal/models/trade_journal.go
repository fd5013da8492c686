package models

import (
	"time"
)

// TradeJournal is one closed position
type TradeJournal struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	PositionID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_trade_journal_position" json:"position_id"`
	Token      string    `gorm:"type:varchar(64);not null;index" json:"token"`
	EntryPrice float64   `gorm:"not null" json:"entry_price"`
	ExitPrice  float64   `gorm:"not null" json:"exit_price"`
	SizeSOL    float64   `gorm:"not null" json:"size_sol"`
	PnLSOL     float64   `gorm:"column:pnl_sol;not null" json:"pnl_sol"`
	ExitReason string    `gorm:"type:varchar(32);not null" json:"exit_reason"`
	Signature  string    `gorm:"type:text" json:"signature"`
	OpenedAt   time.Time `gorm:"not null" json:"opened_at"`
	ClosedAt   time.Time `gorm:"not null;index" json:"closed_at"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (TradeJournal) TableName() string {
	return "trade_journal"
}
