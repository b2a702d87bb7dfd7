// Package filestore keeps the project index and chart settings on the local
// filesystem: one directory per project, one index file for the whole root.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"excelviz/domain/core"
	"excelviz/internal/settings"
	"excelviz/ports"
)

const (
	indexFile    = "index.json"
	settingsFile = "chart_settings.json"
	backupLayout = "2006-01-02_15-04-05"
)

// Store implements ports.ProjectStore under a root directory. Projects live at
// <root>/<user>/<project-id>; index.json maps keys to those locations.
type Store struct {
	mu   sync.Mutex
	root string
	now  func() time.Time
}

// index is the on-disk shape of index.json: user -> project id -> entry
type index map[string]map[string]*ports.Project

// NewStore creates a store rooted at dir
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{root: dir, now: time.Now}, nil
}

// Root returns the storage root
func (s *Store) Root() string {
	return s.root
}

// Register adds or updates a project index entry and creates its directory
func (s *Store) Register(_ context.Context, p *ports.Project) error {
	if err := p.Key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	user := string(p.Key.UserID)
	if idx[user] == nil {
		idx[user] = make(map[string]*ports.Project)
	}

	now := s.now().UTC()
	if prev, ok := idx[user][string(p.Key.ProjectID)]; ok && p.CreatedAt.IsZero() {
		p.CreatedAt = prev.CreatedAt
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Location == "" {
		p.Location = filepath.Join(s.root, user, string(p.Key.ProjectID))
	}
	if !s.contains(p.Location) {
		return core.NewValidationError("location", "must stay under the storage root")
	}
	if err := os.MkdirAll(p.Location, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	entry := *p
	idx[user][string(p.Key.ProjectID)] = &entry
	return s.writeIndex(idx)
}

// contains reports whether path resolves to a directory below the root
func (s *Store) contains(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Resolve looks up a project by key
func (s *Store) Resolve(_ context.Context, key core.ProjectKey) (*ports.Project, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolve(key)
}

func (s *Store) resolve(key core.ProjectKey) (*ports.Project, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	p, ok := idx[string(key.UserID)][string(key.ProjectID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrProjectNotFound, key)
	}
	out := *p
	out.Key = key
	return &out, nil
}

// ListByUser returns a user's projects, most recently updated first
func (s *Store) ListByUser(_ context.Context, userID core.UserID) ([]*ports.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	out := make([]*ports.Project, 0, len(idx[string(userID)]))
	for id, p := range idx[string(userID)] {
		cp := *p
		cp.Key = core.ProjectKey{UserID: userID, ProjectID: core.ProjectID(id)}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Save writes chart_settings.json in the project directory, plus a timestamped
// backup copy.
func (s *Store) Save(_ context.Context, key core.ProjectKey, doc *settings.Settings) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.resolve(key)
	if err != nil {
		return err
	}

	now := s.now()
	doc.Version = settings.Version
	doc.SavedAt = now.UTC()
	data, err := settings.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal chart settings: %w", err)
	}

	if err := writeAtomic(filepath.Join(p.Location, settingsFile), data); err != nil {
		return fmt.Errorf("failed to write chart settings: %w", err)
	}
	backup := filepath.Join(p.Location, fmt.Sprintf("chart_settings_%s.json", now.Format(backupLayout)))
	if err := writeAtomic(backup, data); err != nil {
		// The primary copy is already in place
		log.Printf("[SettingsStore] Backup write failed for %s: %v", key, err)
	}
	log.Printf("[SettingsStore] Saved %d chart(s) for %s", len(doc.Charts), key)
	return nil
}

// Load reads the project's chart_settings.json
func (s *Store) Load(_ context.Context, key core.ProjectKey) (*settings.Settings, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(p.Location, settingsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no chart settings for %s", core.ErrProjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to read chart settings: %w", err)
	}
	return settings.Unmarshal(data)
}

// Backups lists the file names of a project's backups, oldest first
func (s *Store) Backups(ctx context.Context, key core.ProjectKey) ([]string, error) {
	p, err := s.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(p.Location, "chart_settings_*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = filepath.Base(m)
	}
	return names, nil
}

func (s *Store) readIndex() (index, error) {
	data, err := os.ReadFile(filepath.Join(s.root, indexFile))
	if os.IsNotExist(err) {
		return make(index), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project index: %w", err)
	}
	idx := make(index)
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to decode project index: %w", err)
	}
	return idx, nil
}

func (s *Store) writeIndex(idx index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project index: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.root, indexFile), data); err != nil {
		return fmt.Errorf("failed to write project index: %w", err)
	}
	return nil
}

// writeAtomic replaces path via a temp file in the same directory
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
