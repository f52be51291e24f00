package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// migrations are applied in order; index+1 is the schema version. Each entry
// is a list of single statements so they run on both sqlite and postgres.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS customer (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			company TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_customer_status ON customer (status)`,
		`CREATE TABLE IF NOT EXISTS email_template (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			format TEXT NOT NULL DEFAULT 'html',
			last_used TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS email_schedule (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			template_id TEXT NOT NULL,
			recipients TEXT NOT NULL,
			scheduled_date TEXT NOT NULL,
			scheduled_time TEXT NOT NULL,
			status TEXT NOT NULL,
			track_opens INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			claimed_at TEXT NOT NULL DEFAULT '',
			sent_at TEXT NOT NULL DEFAULT '',
			campaign_id TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_email_schedule_due ON email_schedule (status, scheduled_date, scheduled_time)`,
		`CREATE TABLE IF NOT EXISTS email_campaign (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			recipients TEXT NOT NULL,
			sent INTEGER NOT NULL DEFAULT 0,
			opened INTEGER NOT NULL DEFAULT 0,
			clicked INTEGER NOT NULL DEFAULT 0,
			date TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'manual',
			schedule_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
	},
	{
		`CREATE TABLE IF NOT EXISTS outbox (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			payload TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			max_attempts INTEGER NOT NULL DEFAULT 5,
			last_attempted_at TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			published_at TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox (status, created_at)`,
	},
}

// LatestSchemaVersion returns the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return len(migrations)
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
// PRE: db is a valid database connection
// POST: schema_version exists
func SchemaVersion(db *sql.DB) (int, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}
	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return current, nil
}

// MigrateDB brings the schema up to LatestSchemaVersion.
// PRE: db is a valid database connection for dialect d
// POST: All pending migrations are applied and recorded in schema_version
func MigrateDB(db *sql.DB, d Dialect) error {
	if d == DialectSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		for _, stmt := range migrations[i] {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("migration %d failed: %w", version, err)
			}
		}
		if _, err := db.Exec(d.Rebind("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)"),
			version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
		slog.Info("schema_migrated", "version", version)
	}
	return nil
}
