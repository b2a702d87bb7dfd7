package workspace

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"excelviz/domain/chart"
	"excelviz/domain/core"
	"excelviz/domain/dataset"
	"excelviz/internal/charting"
	"excelviz/ports"

	"golang.org/x/sync/singleflight"
)

// RendererFactory creates the renderer of a new session
type RendererFactory func(id core.SessionID) ports.ChartRenderer

// LoadFunc produces the table a session starts from
type LoadFunc func(ctx context.Context) (*dataset.Table, error)

// ManagerConfig configures a Manager
type ManagerConfig struct {
	TTL         time.Duration
	Theme       charting.Theme
	NewRenderer RendererFactory
}

// Manager owns the live sessions. Sessions idle for longer than the TTL are
// swept; concurrent opens of the same source share one parse.
type Manager struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*Session
	loads    singleflight.Group
	config   ManagerConfig
}

// NewManager creates a session manager
func NewManager(config ManagerConfig) *Manager {
	if config.TTL <= 0 {
		config.TTL = 2 * time.Hour
	}
	return &Manager{
		sessions: make(map[core.SessionID]*Session),
		config:   config,
	}
}

// Open parses a source once per key, even under concurrent calls, and starts a
// new session over the result.
func (m *Manager) Open(ctx context.Context, key string, load LoadFunc) (*Session, error) {
	v, err, shared := m.loads.Do(key, func() (interface{}, error) {
		return load(ctx)
	})
	if err != nil {
		return nil, err
	}
	table, ok := v.(*dataset.Table)
	if !ok || table == nil {
		return nil, fmt.Errorf("load %s: no table", key)
	}
	if shared {
		log.Printf("[Workspace] Reused in-flight parse of %s", key)
	}
	return m.Start(table), nil
}

// Start registers a new session over table
func (m *Manager) Start(table *dataset.Table) *Session {
	id := core.NewSessionID()
	var renderer ports.ChartRenderer
	if m.config.NewRenderer != nil {
		renderer = m.config.NewRenderer(id)
	} else {
		renderer = NopRenderer{}
	}
	session := NewSession(id, table, renderer, Options{Theme: m.config.Theme})

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()
	return session
}

// Get returns a live session
func (m *Manager) Get(id core.SessionID) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	return session, nil
}

// Close ends a session and releases its charts
func (m *Manager) Close(id core.SessionID) bool {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		session.Load(&dataset.Table{})
	}
	return ok
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle since before now minus the TTL
func (m *Manager) Sweep(now time.Time) int {
	cutoff := now.Add(-m.config.TTL)

	m.mu.RLock()
	var expired []core.SessionID
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.Close(id)
	}
	if len(expired) > 0 {
		log.Printf("[Workspace] Swept %d idle session(s)", len(expired))
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done
func (m *Manager) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// NopRenderer creates instances that hold no resources
type NopRenderer struct{}

func (NopRenderer) Create(string, chart.Spec) (ports.ChartInstance, error) {
	return nopInstance{}, nil
}

type nopInstance struct{}

func (nopInstance) Destroy() error { return nil }
