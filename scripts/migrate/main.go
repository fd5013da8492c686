package main

import (
	"flag"

	log "github.com/sirupsen/logrus"

	"tradecontrol/pkg/config"
)

// Applies or rolls back the SQL migrations.
// Usage: go run ./scripts/migrate [-down]
func main() {
	down := flag.Bool("down", false, "roll back the last migration")
	dir := flag.String("dir", config.MigrationsDir, "migrations directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Database.Enabled() {
		log.Fatal("DB_HOST is required")
	}
	cfg.Database.MigrateOnStart = false
	config.MigrationsDir = *dir

	if err := config.InitDB(cfg.Database); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer config.CloseDB()

	if *down {
		err = config.RollbackMigration()
	} else {
		err = config.ExecuteMigrations()
	}
	if err != nil {
		log.Fatal(err)
	}
}
