package config

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tradecontrol/internal/models"
)

var DB *gorm.DB

// InitDB opens the postgres connection and migrates the journal models
func InitDB(cfg DatabaseConfig) error {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db

	if cfg.MigrateOnStart {
		if err := ExecuteMigrations(); err != nil {
			return err
		}
	}

	err = DB.AutoMigrate(
		&models.TradeJournal{},
		&models.OrderResult{},
		&models.RiskSnapshot{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.WithFields(log.Fields{
		"host": cfg.Host,
		"db":   cfg.Name,
	}).Info("Database initialized")
	return nil
}

// CloseDB releases the connection pool
func CloseDB() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.Close()
	}
}
