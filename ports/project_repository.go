package ports

import (
	"context"
	"io"
	"time"

	"excelviz/domain/core"
	"excelviz/internal/settings"
)

// Project is one entry of the project index: where a user's project lives
type Project struct {
	Key       core.ProjectKey `json:"key" db:"-"`
	Name      string          `json:"name" db:"name"`
	FileName  string          `json:"file_name" db:"file_name"`
	Location  string          `json:"location" db:"location"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// ProjectIndex maps (user, project) keys to storage locations
type ProjectIndex interface {
	Register(ctx context.Context, project *Project) error
	Resolve(ctx context.Context, key core.ProjectKey) (*Project, error)
	ListByUser(ctx context.Context, userID core.UserID) ([]*Project, error)
}

// SettingsRepository persists chart settings per project
type SettingsRepository interface {
	// Save stores settings for a registered project
	Save(ctx context.Context, key core.ProjectKey, s *settings.Settings) error
	// Load returns the latest settings; unknown projects wrap core.ErrProjectNotFound
	Load(ctx context.Context, key core.ProjectKey) (*settings.Settings, error)
}

// ProjectStore is a project index that also stores settings
type ProjectStore interface {
	ProjectIndex
	SettingsRepository
}

// BackupLister is implemented by stores that keep a timestamped copy of every save
type BackupLister interface {
	// Backups returns backup file names, oldest first
	Backups(ctx context.Context, key core.ProjectKey) ([]string, error)
}

// UploadStorage keeps uploaded spreadsheets
type UploadStorage interface {
	Store(ctx context.Context, r io.Reader, filename string) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}
