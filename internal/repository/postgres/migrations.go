package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations contains all database migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			CREATE TABLE IF NOT EXISTS tools (
				id UUID PRIMARY KEY,
				url TEXT NOT NULL,
				name VARCHAR(500) NOT NULL,
				description TEXT NOT NULL,
				categories TEXT[] NOT NULL DEFAULT '{}',
				price VARCHAR(20) NOT NULL DEFAULT 'Freemium',
				ease_of_use VARCHAR(20) NOT NULL DEFAULT 'Beginner',
				submitted_by VARCHAR(255) NOT NULL,
				justification TEXT NOT NULL DEFAULT '',
				upvotes INTEGER NOT NULL DEFAULT 0,
				downvotes INTEGER NOT NULL DEFAULT 0,
				image_url TEXT,

				submitted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				last_updated_at TIMESTAMP WITH TIME ZONE,

				CHECK (price IN ('Free', 'Freemium', 'Paid')),
				CHECK (ease_of_use IN ('Beginner', 'Intermediate', 'Expert'))
			);

			CREATE UNIQUE INDEX IF NOT EXISTS idx_tools_url
			ON tools(url);

			CREATE INDEX IF NOT EXISTS idx_tools_submitted_at
			ON tools(submitted_at DESC);
		`,
	},
	{
		Version: 2,
		Name:    "category_index",
		SQL: `
			CREATE INDEX IF NOT EXISTS idx_tools_categories
			ON tools USING GIN(categories);
		`,
	},
	{
		Version: 3,
		Name:    "submitted_url_key",
		SQL: `
			ALTER TABLE tools ADD COLUMN IF NOT EXISTS url_key TEXT;
			UPDATE tools SET url_key = url WHERE url_key IS NULL;
			ALTER TABLE tools ALTER COLUMN url_key SET NOT NULL;

			DROP INDEX IF EXISTS idx_tools_url;
			CREATE UNIQUE INDEX IF NOT EXISTS idx_tools_url_key
			ON tools(url_key);
		`,
	},
}

// RunMigrations executes all pending database migrations
func RunMigrations(db *sql.DB, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	logger.Info("Current migration version", "version", currentVersion)

	applied := 0
	for _, migration := range pendingMigrations(currentVersion) {
		logger.Info("Applying migration",
			"version", migration.Version,
			"name", migration.Name,
		)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES ($1, $2)",
			migration.Version, migration.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		applied++
		logger.Info("Migration applied successfully", "version", migration.Version)
	}

	if applied == 0 {
		logger.Info("No migrations to apply - database is up to date")
	} else {
		logger.Info("Database migrations completed", "applied", applied)
	}

	return nil
}

// pendingMigrations returns the migrations newer than currentVersion, in order
func pendingMigrations(currentVersion int) []Migration {
	var pending []Migration
	for _, migration := range migrations {
		if migration.Version > currentVersion {
			pending = append(pending, migration)
		}
	}
	return pending
}

// LatestVersion is the version the schema reaches once every migration is applied
func LatestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

// GetMigrationStatus returns the current migration status
func GetMigrationStatus(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get migration status: %w", err)
	}
	return version, nil
}

// ResetDatabase drops all tables (for testing)
func ResetDatabase(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	logger.Warn("Resetting database - all data will be lost")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	dropSQL := []string{
		"DROP TABLE IF EXISTS tools CASCADE",
		"DROP TABLE IF EXISTS migrations CASCADE",
	}

	for _, stmt := range dropSQL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute drop statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset transaction: %w", err)
	}

	logger.Info("Database reset completed")
	return nil
}
