package main

import (
	"database/sql"
	"flag"
	"os"

	"github.com/navid-fn/dupe-radar/configs"
	"github.com/navid-fn/dupe-radar/internal/storage"

	_ "github.com/ClickHouse/clickhouse-go/v2" // ClickHouse driver
)

func main() {
	downFlag := flag.Bool("down", false, "roll back the latest migration instead of migrating up")
	flag.Parse()

	cfg := configs.AppLoad()
	logger := cfg.NewLogger()

	// Connect using native ClickHouse driver
	db, err := sql.Open("clickhouse", cfg.DBDSN)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Verify connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	if *downFlag {
		logger.Info("Rolling back latest migration...")
		if err := storage.Rollback(db); err != nil {
			logger.Error("Goose rollback failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Rollback completed successfully")
		return
	}

	logger.Info("Running database migrations...")
	if err := storage.Migrate(db); err != nil {
		logger.Error("Goose migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Migrations completed successfully")
}
