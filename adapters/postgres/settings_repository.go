package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"excelviz/domain/core"
	"excelviz/internal/settings"
	"excelviz/ports"

	"github.com/jmoiron/sqlx"
)

// SettingsRepository stores the project index and chart settings in PostgreSQL
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

type projectRow struct {
	UserID    string    `db:"user_id"`
	ProjectID string    `db:"project_id"`
	Name      string    `db:"name"`
	FileName  string    `db:"file_name"`
	Location  string    `db:"location"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r projectRow) project() *ports.Project {
	return &ports.Project{
		Key:       core.ProjectKey{UserID: core.UserID(r.UserID), ProjectID: core.ProjectID(r.ProjectID)},
		Name:      r.Name,
		FileName:  r.FileName,
		Location:  r.Location,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Register adds or updates a project index entry
func (r *SettingsRepository) Register(ctx context.Context, p *ports.Project) error {
	if err := p.Key.Validate(); err != nil {
		return err
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO project_index (user_id, project_id, name, file_name, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, project_id) DO UPDATE SET
			name = EXCLUDED.name,
			file_name = EXCLUDED.file_name,
			location = EXCLUDED.location,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		string(p.Key.UserID),
		string(p.Key.ProjectID),
		p.Name,
		p.FileName,
		p.Location,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to register project %s: %w", p.Key, err)
	}
	return nil
}

// Resolve looks up a project by key
func (r *SettingsRepository) Resolve(ctx context.Context, key core.ProjectKey) (*ports.Project, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	query := `
		SELECT user_id, project_id, name, file_name, location, created_at, updated_at
		FROM project_index
		WHERE user_id = $1 AND project_id = $2`

	var row projectRow
	if err := r.db.GetContext(ctx, &row, query, string(key.UserID), string(key.ProjectID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrProjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to resolve project %s: %w", key, err)
	}
	return row.project(), nil
}

// ListByUser returns a user's projects, most recently updated first
func (r *SettingsRepository) ListByUser(ctx context.Context, userID core.UserID) ([]*ports.Project, error) {
	query := `
		SELECT user_id, project_id, name, file_name, location, created_at, updated_at
		FROM project_index
		WHERE user_id = $1
		ORDER BY updated_at DESC`

	var rows []projectRow
	if err := r.db.SelectContext(ctx, &rows, query, string(userID)); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	out := make([]*ports.Project, len(rows))
	for i, row := range rows {
		out[i] = row.project()
	}
	return out, nil
}

// Save upserts the project's settings document. The project must be registered.
func (r *SettingsRepository) Save(ctx context.Context, key core.ProjectKey, s *settings.Settings) error {
	if _, err := r.Resolve(ctx, key); err != nil {
		return err
	}
	s.Version = settings.Version
	s.SavedAt = time.Now().UTC()

	doc, err := settings.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal chart settings: %w", err)
	}

	query := `
		INSERT INTO chart_settings (user_id, project_id, settings, version, saved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, project_id) DO UPDATE SET
			settings = EXCLUDED.settings,
			version = EXCLUDED.version,
			saved_at = EXCLUDED.saved_at`

	_, err = r.db.ExecContext(ctx, query,
		string(key.UserID),
		string(key.ProjectID),
		doc,
		s.Version,
		s.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save chart settings: %w", err)
	}
	return nil
}

// Load returns the project's settings document
func (r *SettingsRepository) Load(ctx context.Context, key core.ProjectKey) (*settings.Settings, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	query := `
		SELECT settings
		FROM chart_settings
		WHERE user_id = $1 AND project_id = $2`

	var doc []byte
	err := r.db.QueryRowContext(ctx, query, string(key.UserID), string(key.ProjectID)).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no chart settings for %s", core.ErrProjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to load chart settings: %w", err)
	}
	return settings.Unmarshal(doc)
}
