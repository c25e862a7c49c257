package storage

import (
	"database/sql"
	"fmt"

	"github.com/navid-fn/dupe-radar/internal/storage/migrations"

	"github.com/pressly/goose/v3"
)

func setupGoose() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("clickhouse"); err != nil {
		return fmt.Errorf("goose: set dialect: %w", err)
	}
	return nil
}

// Migrate applies every pending schema migration.
func Migrate(db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Rollback reverts the most recent schema migration.
func Rollback(db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.Down(db, "."); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}
