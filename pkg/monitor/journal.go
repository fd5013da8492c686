package monitor

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradecontrol/internal/core"
	"tradecontrol/internal/models"
)

// GormJournal persists closed trades and order outcomes to postgres
type GormJournal struct {
	db *gorm.DB
}

func NewGormJournal(db *gorm.DB) *GormJournal {
	return &GormJournal{db: db}
}

func (j *GormJournal) Record(ctx context.Context, trade core.CompletedTrade) error {
	entry := models.TradeJournal{
		PositionID: trade.PositionID.String(),
		Token:      trade.Token,
		EntryPrice: trade.EntryPrice,
		ExitPrice:  trade.ExitPrice,
		SizeSOL:    trade.SizeSOL,
		PnLSOL:     trade.PnLSOL,
		ExitReason: string(trade.ExitReason),
		Signature:  trade.Signature,
		OpenedAt:   trade.OpenedAt,
		ClosedAt:   trade.ClosedAt,
	}
	if err := j.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record trade %s: %w", trade.PositionID, err)
	}
	log.WithFields(log.Fields{
		"position_id": trade.PositionID,
		"pnl_sol":     trade.PnLSOL,
	}).Info("Trade recorded to journal")
	return nil
}

// RecordOrder stores the outcome of one order
func (j *GormJournal) RecordOrder(ctx context.Context, order core.TradeOrder, result core.TradeResult) error {
	row := models.OrderResult{
		OrderID:     result.OrderID.String(),
		SignalID:    order.SignalID.String(),
		Token:       order.Token,
		Direction:   string(order.Kind),
		AmountSOL:   order.AmountSOL,
		FilledSOL:   result.FilledSOL,
		Status:      string(result.Status),
		Signature:   result.Signature,
		Error:       result.Error,
		CompletedAt: result.CompletedAt,
	}
	if err := j.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record order %s: %w", result.OrderID, err)
	}
	return nil
}

// Recent returns the latest closed trades, newest first
func (j *GormJournal) Recent(ctx context.Context, limit int) ([]models.TradeJournal, error) {
	var trades []models.TradeJournal
	err := j.db.WithContext(ctx).Order("closed_at DESC").Limit(limit).Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query trade journal: %w", err)
	}
	return trades, nil
}

var csvHeader = []string{
	"position_id", "token", "entry_price", "exit_price", "size_sol",
	"pnl_sol", "exit_reason", "signature", "opened_at", "closed_at",
}

// CSVJournal appends closed trades to a local file, used when no database is configured
type CSVJournal struct {
	path string
	mu   sync.Mutex
}

func NewCSVJournal(path string) *CSVJournal {
	return &CSVJournal{path: path}
}

func (j *CSVJournal) Record(_ context.Context, trade core.CompletedTrade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if dir := filepath.Dir(j.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	_, statErr := os.Stat(j.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	record := []string{
		trade.PositionID.String(),
		trade.Token,
		formatFloat(trade.EntryPrice),
		formatFloat(trade.ExitPrice),
		formatFloat(trade.SizeSOL),
		formatFloat(trade.PnLSOL),
		string(trade.ExitReason),
		trade.Signature,
		trade.OpenedAt.Format(time.RFC3339Nano),
		trade.ClosedAt.Format(time.RFC3339Nano),
	}
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}

	log.WithFields(log.Fields{
		"position_id": trade.PositionID,
		"pnl_sol":     trade.PnLSOL,
		"path":        j.path,
	}).Info("Trade recorded to journal")
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var (
	_ core.Journal = (*GormJournal)(nil)
	_ core.Journal = (*CSVJournal)(nil)
)
