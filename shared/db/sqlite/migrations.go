package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dfryer1193/xbrush/shared/db"
	"github.com/rs/zerolog/log"
)

// migration is one versioned schema change.
type migration struct {
	version int
	name    string
	up      string
}

// migrations must stay sorted by version.
var migrations = []migration{
	{
		version: 1,
		name:    "create_models_table",
		up: `
			CREATE TABLE IF NOT EXISTS models (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				bio TEXT NOT NULL DEFAULT '',
				bio_html TEXT NOT NULL DEFAULT '',
				snippet TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_models_created_at
			ON models(created_at DESC);
		`,
	},
	{
		version: 2,
		name:    "create_images_table",
		up: `
			CREATE TABLE IF NOT EXISTS images (
				id TEXT PRIMARY KEY,
				owner_id TEXT REFERENCES models(id) ON DELETE CASCADE,
				role TEXT NOT NULL,
				position INTEGER NOT NULL DEFAULT 0,
				file_name TEXT NOT NULL,
				format TEXT NOT NULL,
				width INTEGER NOT NULL,
				height INTEGER NOT NULL,
				original_width INTEGER NOT NULL,
				original_height INTEGER NOT NULL,
				size INTEGER NOT NULL,
				hash TEXT NOT NULL,
				data_uri TEXT NOT NULL,
				updated_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_images_owner
			ON images(owner_id, role, position);
		`,
	},
}

const createMigrationsTableQuery = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
`

// runMigrations brings the schema up to the latest version. Each migration
// runs in its own transaction together with its schema_migrations record.
func runMigrations(ctx context.Context, sqlDB *sql.DB) error {
	if _, err := sqlDB.ExecContext(ctx, createMigrationsTableQuery); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var applied int
	if err := sqlDB.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&applied); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	var pending []migration
	for _, m := range migrations {
		if m.version > applied {
			pending = append(pending, m)
		}
	}

	for _, m := range pending {
		if err := applyMigration(ctx, sqlDB, m); err != nil {
			return err
		}
	}

	return nil
}

const recordMigrationQuery = `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`

func applyMigration(ctx context.Context, sqlDB *sql.DB, m migration) error {
	return db.RunInTransaction(ctx, sqlDB, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, sqlDB)

		if _, err := executor.ExecContext(txCtx, m.up); err != nil {
			return fmt.Errorf("migration %03d_%s failed: %w", m.version, m.name, err)
		}

		if _, err := executor.ExecContext(txCtx, recordMigrationQuery, m.version, m.name); err != nil {
			return fmt.Errorf("failed to record migration %03d: %w", m.version, err)
		}

		log.Debug().Int("version", m.version).Str("name", m.name).Msg("Applied migration")
		return nil
	})
}
