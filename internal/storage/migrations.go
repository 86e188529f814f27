package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Alert rules table
			CREATE TABLE IF NOT EXISTS alert_rules (
				id TEXT PRIMARY KEY,
				site_id TEXT NOT NULL,
				type TEXT NOT NULL,
				name TEXT NOT NULL,
				description TEXT,
				enabled INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Alert events table (append-only; delivery columns updated once)
			CREATE TABLE IF NOT EXISTS alert_events (
				id TEXT PRIMARY KEY,
				alert_rule_id TEXT NOT NULL,
				site_id TEXT NOT NULL,
				triggered_at DATETIME NOT NULL,
				severity TEXT NOT NULL,
				payload_json TEXT NOT NULL,
				sent_to_json TEXT NOT NULL DEFAULT '[]',
				email_sent INTEGER NOT NULL DEFAULT 0,
				email_error TEXT
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_rules_site ON alert_rules(site_id);
			CREATE INDEX IF NOT EXISTS idx_rules_enabled ON alert_rules(enabled);
			CREATE INDEX IF NOT EXISTS idx_events_dedup
				ON alert_events(alert_rule_id, site_id, triggered_at);
			CREATE INDEX IF NOT EXISTS idx_events_triggered ON alert_events(triggered_at);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
