package migration

import (
	"context"
	"log"

	"excelviz/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createProjectIndexTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create project_index table")
	}

	if err := r.createChartSettingsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create chart_settings table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createProjectIndexTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS project_index (
			user_id VARCHAR(255) NOT NULL,
			project_id VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			file_name VARCHAR(1024) NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (user_id, project_id)
		)
	`)
	return err
}

func (r *MigrationRunner) createChartSettingsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chart_settings (
			user_id VARCHAR(255) NOT NULL,
			project_id VARCHAR(255) NOT NULL,
			settings JSONB NOT NULL,
			version VARCHAR(20) NOT NULL DEFAULT '1.0',
			saved_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (user_id, project_id),
			FOREIGN KEY (user_id, project_id) REFERENCES project_index(user_id, project_id) ON DELETE CASCADE
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_projects_user_updated ON project_index(user_id, updated_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_chart_settings_saved_at ON chart_settings(saved_at DESC)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			log.Printf("[Migration] Index creation warning: %v", err)
		}
	}
	return nil
}
