package models

import (
	"time"
)

// OrderResult records the outcome of every submitted order
type OrderResult struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_order_results_order" json:"order_id"`
	SignalID    string    `gorm:"type:varchar(36)" json:"signal_id"`
	Token       string    `gorm:"type:varchar(64);not null;index" json:"token"`
	Direction   string    `gorm:"type:varchar(20);not null" json:"direction"`
	AmountSOL   float64   `gorm:"not null" json:"amount_sol"`
	FilledSOL   *float64  `json:"filled_sol"`
	Status      string    `gorm:"type:varchar(20);not null" json:"status"`
	Signature   string    `gorm:"type:text" json:"signature"`
	Error       string    `gorm:"type:text" json:"error"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (OrderResult) TableName() string {
	return "order_results"
}
