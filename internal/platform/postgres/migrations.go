package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version the engine expects.
// If the database cannot be migrated to this version, startup fails.
const ExpectedSchemaVersion = 5

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Requirements catalog",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS standards (
					id UUID PRIMARY KEY,
					code TEXT UNIQUE NOT NULL,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					version TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,

				`CREATE TABLE IF NOT EXISTS requirements (
					id UUID PRIMARY KEY,
					standard_id UUID NOT NULL REFERENCES standards(id) ON DELETE CASCADE,
					code TEXT NOT NULL,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					criticality TEXT NOT NULL DEFAULT 'medium',
					created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
					UNIQUE (standard_id, code)
				)`,
				`CREATE INDEX idx_requirements_standard ON requirements(standard_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Application registry",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS applications (
					id UUID PRIMARY KEY,
					name TEXT NOT NULL,
					sync_mode TEXT NOT NULL,
					criticality TEXT NOT NULL DEFAULT 'medium',
					requirement_ids UUID[] NOT NULL DEFAULT '{}',
					version BIGINT NOT NULL DEFAULT 1,
					registered_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL
				)`,
				`CREATE UNIQUE INDEX idx_applications_name ON applications(lower(name))`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Sync state per application",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS sync_state (
					application_id UUID PRIMARY KEY REFERENCES applications(id) ON DELETE CASCADE,
					status TEXT NOT NULL DEFAULT 'pending',
					frequency TEXT NOT NULL DEFAULT 'daily',
					in_flight BOOLEAN NOT NULL DEFAULT FALSE,
					lease_token TEXT NOT NULL DEFAULT '',
					last_attempt_at TIMESTAMPTZ,
					last_success_at TIMESTAMPTZ,
					errors TEXT[] NOT NULL DEFAULT '{}',
					updated_at TIMESTAMPTZ NOT NULL
				)
			`)
			return err
		},
	},
	{
		Version:     4,
		Description: "Fulfillment records",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS fulfillments (
					application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
					requirement_id UUID NOT NULL,
					status TEXT NOT NULL,
					evidence TEXT NOT NULL DEFAULT '',
					justification TEXT NOT NULL DEFAULT '',
					auto_status TEXT,
					auto_confidence TEXT,
					auto_source TEXT,
					auto_observed_at TIMESTAMPTZ,
					override_by TEXT,
					override_at TIMESTAMPTZ,
					responsible_party TEXT NOT NULL DEFAULT '',
					last_modified_by TEXT NOT NULL DEFAULT '',
					last_assessed_at TIMESTAMPTZ,
					version BIGINT NOT NULL DEFAULT 1,
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL,
					PRIMARY KEY (application_id, requirement_id)
				)`,
				`CREATE INDEX idx_fulfillments_requirement ON fulfillments(requirement_id)`,
				`CREATE INDEX idx_fulfillments_status ON fulfillments(application_id, status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     5,
		Description: "Audit outbox and event materialization",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS audit_outbox (
					id UUID PRIMARY KEY,
					category TEXT NOT NULL,
					aggregate_type TEXT NOT NULL,
					aggregate_id TEXT NOT NULL,
					event_type TEXT NOT NULL,
					payload JSONB NOT NULL,
					created_at TIMESTAMPTZ NOT NULL,
					published_at TIMESTAMPTZ
				)`,
				`CREATE INDEX idx_audit_outbox_unpublished ON audit_outbox(created_at) WHERE published_at IS NULL`,

				`CREATE TABLE IF NOT EXISTS audit_events (
					id UUID PRIMARY KEY,
					category TEXT NOT NULL,
					timestamp TIMESTAMPTZ NOT NULL,
					application_id UUID,
					requirement_id UUID,
					action TEXT NOT NULL,
					actor TEXT NOT NULL DEFAULT '',
					source TEXT NOT NULL DEFAULT '',
					decision TEXT NOT NULL DEFAULT '',
					reason TEXT NOT NULL DEFAULT '',
					request_id TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX idx_audit_events_application ON audit_events(application_id, timestamp DESC)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending schema migrations. Versions are tracked in a
// schema_migrations table so repeated startups are no-ops.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var currentVersion int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, migration.Version); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		logger.Info("applied migration",
			slog.Int("version", migration.Version),
			slog.String("description", migration.Description))
	}

	var finalVersion int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
