// Package workspace hosts the interactive chart view of one uploaded sheet:
// filters, chart slots, theme and colors, and their save/restore.
package workspace

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"slices"
	"sync"
	"time"

	"excelviz/domain/chart"
	"excelviz/domain/core"
	"excelviz/domain/dataset"
	"excelviz/internal/charting"
	"excelviz/internal/filter"
	"excelviz/internal/settings"
	"excelviz/ports"
)

// DefaultKind is the kind a freshly generated chart starts with
const DefaultKind = chart.Bar

type slotState struct {
	column  string
	kind    chart.Kind
	multi   bool
	columns []string
	// options restored from a saved document, dropped on kind change
	options chart.Options
}

func (s *slotState) sources() []string {
	if s.multi && len(s.columns) > 0 {
		return s.columns
	}
	return []string{s.column}
}

// Options configures a new session
type Options struct {
	Theme charting.Theme
	// Rand seeds theme color draws; nil uses the clock
	Rand *rand.Rand
}

// Session is one user's chart workspace over one table. All methods are safe for
// concurrent use; every mutation runs under the session lock.
type Session struct {
	mu sync.Mutex

	id       core.SessionID
	table    *dataset.Table
	filters  *filter.Engine
	builder  *charting.Builder
	registry *charting.Registry
	renderer ports.ChartRenderer

	selected []string
	slots    map[string]*slotState
	lastUsed time.Time
}

// NewSession creates a session over table, drawing charts through renderer
func NewSession(id core.SessionID, table *dataset.Table, renderer ports.ChartRenderer, opts Options) *Session {
	if table == nil {
		table = &dataset.Table{}
	}
	s := &Session{
		id:       id,
		renderer: renderer,
		builder:  charting.NewBuilder(charting.NewPalette(opts.Theme, opts.Rand), charting.NewColorBook()),
		registry: charting.NewRegistry(renderer),
		slots:    make(map[string]*slotState),
		lastUsed: time.Now(),
	}
	s.load(table)
	return s
}

// ID returns the session identifier
func (s *Session) ID() core.SessionID {
	return s.id
}

// Renderer returns the renderer the session draws through
func (s *Session) Renderer() ports.ChartRenderer {
	return s.renderer
}

// Load replaces the table and clears filters and charts. Colors and theme persist.
func (s *Session) Load(table *dataset.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.load(table)
}

func (s *Session) load(table *dataset.Table) {
	if s.registry != nil {
		s.registry.Clear()
	}
	s.table = table
	s.filters = filter.NewEngine(table.Records)
	s.selected = nil
	s.slots = make(map[string]*slotState)
	log.Printf("[Workspace] Session %s loaded %q: %d rows, %d columns", s.id, table.Source, len(table.Records), len(table.Columns))
}

// Table returns the loaded table
func (s *Session) Table() *dataset.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// Columns returns the table's columns
func (s *Session) Columns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.table.Columns...)
}

// RegisterFilters makes columns filterable with every value included, then
// redraws every chart.
func (s *Session) RegisterFilters(columns []string) (core.Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if v := s.filters.Register(columns); !v.OK {
		return v, nil
	}
	return core.Valid, s.refresh()
}

// FilterValues returns the distinct values and current inclusions of a filter column
func (s *Session) FilterValues(column string) (values, included []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.filters.Registered(column) {
		return nil, nil, fmt.Errorf("%w: no filter on %s", core.ErrColumnNotFound, column)
	}
	return s.filters.Values(column), s.filters.Included(column), nil
}

// SetInclusion toggles one filter value and redraws every chart. Unregistered
// columns are a no-op.
func (s *Session) SetInclusion(column, value string, included bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if !s.filters.SetInclusion(column, value, included) {
		return nil
	}
	return s.refresh()
}

// FilterSummary describes the active filters
func (s *Session) FilterSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.Summary()
}

// Generate creates a chart for each column that does not have one yet
func (s *Session) Generate(columns []string) (core.Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.generate(columns)
}

func (s *Session) generate(columns []string) (core.Validation, error) {
	if len(columns) == 0 {
		return core.EmptySelection("chart"), nil
	}
	for _, col := range columns {
		if !s.table.HasColumn(col) {
			return core.Validation{}, fmt.Errorf("%w: %s", core.ErrColumnNotFound, col)
		}
	}
	for _, col := range columns {
		s.addSelected(col)
		slot := chart.SlotKey(col)
		if _, ok := s.slots[slot]; ok {
			continue
		}
		st := &slotState{column: col, kind: DefaultKind}
		s.slots[slot] = st
		if err := s.draw(slot, st); err != nil {
			return core.Valid, err
		}
	}
	return core.Valid, nil
}

// SetKind changes a slot's chart kind and redraws it
func (s *Session) SetKind(slot string, kind chart.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	st, ok := s.slots[slot]
	if !ok {
		return core.NewUnknownSlotError(slot)
	}
	if !kind.Valid() {
		return core.NewInvalidKindError(string(kind))
	}
	st.kind = kind
	st.options = nil
	return s.draw(slot, st)
}

// ToggleMulti switches a slot in or out of multi-column mode. Switching on keeps
// the current chart until columns are chosen; switching off redraws the slot
// from its own column, dropping any sub-charts.
func (s *Session) ToggleMulti(slot string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	st, ok := s.slots[slot]
	if !ok {
		return core.NewUnknownSlotError(slot)
	}
	if st.multi == on {
		return nil
	}
	st.multi = on
	if on {
		return nil
	}
	st.columns = nil
	return s.draw(slot, st)
}

// SetMultiColumns sets the columns compared by a multi-column slot and redraws it
func (s *Session) SetMultiColumns(slot string, columns []string) (core.Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.setMultiColumns(slot, columns)
}

func (s *Session) setMultiColumns(slot string, columns []string) (core.Validation, error) {
	st, ok := s.slots[slot]
	if !ok {
		return core.Validation{}, core.NewUnknownSlotError(slot)
	}
	if len(columns) == 0 {
		return core.EmptySelection("compare"), nil
	}
	for _, col := range columns {
		if !s.table.HasColumn(col) {
			return core.Validation{}, fmt.Errorf("%w: %s", core.ErrColumnNotFound, col)
		}
	}
	st.multi = true
	st.columns = append([]string(nil), columns...)
	return core.Valid, s.draw(slot, st)
}

// SetTheme switches the color theme and redraws every chart
func (s *Session) SetTheme(theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	t, err := charting.ParseTheme(theme)
	if err != nil {
		return err
	}
	if err := s.builder.Palette().SetTheme(t); err != nil {
		return err
	}
	return s.refresh()
}

// Theme returns the active theme
func (s *Session) Theme() charting.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Palette().Theme()
}

// SetColor pins the color of one value of a column and redraws the charts using it
func (s *Session) SetColor(column, value, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.builder.Colors().SetValueColor(column, value, color); err != nil {
		return err
	}
	for _, slot := range s.registry.Keys() {
		st := s.slots[slot]
		if st == nil || !slices.Contains(st.sources(), column) {
			continue
		}
		if err := s.draw(slot, st); err != nil {
			return err
		}
	}
	return nil
}

// SetBaseColor pins a slot's series color and redraws it
func (s *Session) SetBaseColor(slot, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	st, ok := s.slots[slot]
	if !ok {
		return core.NewUnknownSlotError(slot)
	}
	if err := s.builder.Colors().SetBaseColor(slot, color); err != nil {
		return err
	}
	return s.draw(slot, st)
}

// RemoveChart tears down a slot. Unknown slots report false.
func (s *Session) RemoveChart(slot string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	st, ok := s.slots[slot]
	delete(s.slots, slot)
	if ok {
		s.removeSelected(st.column)
	}
	return s.registry.Remove(slot)
}

// Chart returns the chart in slot
func (s *Session) Chart(slot string) (chart.Chart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Get(slot)
}

// Charts returns every chart in slot creation order
func (s *Session) Charts() []chart.Chart {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.registry.Keys()
	out := make([]chart.Chart, 0, len(keys))
	for _, k := range keys {
		if c, ok := s.registry.Get(k); ok {
			out = append(out, c)
		}
	}
	return out
}

// Mode reports the state of a slot
func (s *Session) Mode(slot string) charting.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Mode(slot)
}

// LiveCount returns the number of live renderer instances of a slot
func (s *Session) LiveCount(slot string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.LiveCount(slot)
}

// Snapshot captures the workspace as a settings document
func (s *Session) Snapshot() (*settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return settings.Snapshot(s.registry, s.filters, settings.View{
		FileName:         s.table.Source,
		SelectedColumns:  s.selected,
		Theme:            string(s.builder.Palette().Theme()),
		ColorPreferences: s.builder.Colors().Preferences(),
		BaseColors:       s.builder.Colors().BaseColors(),
	})
}

// Restore replays a saved document: filters and view state, then single-column
// charts, then multi-column charts once every single chart has been drawn.
func (s *Session) Restore(ctx context.Context, saved *settings.Settings) (*settings.Report, error) {
	plan, err := settings.Restore(saved)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	r := &restorer{session: s, drawn: settings.NewCountdown(len(plan.Singles))}
	return plan.Execute(ctx, r, r.drawn)
}

// LastUsed returns the time of the last mutation
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch() {
	s.lastUsed = time.Now()
}

// refresh redraws every slot against the current filters
func (s *Session) refresh() error {
	for _, slot := range s.registry.Keys() {
		st, ok := s.slots[slot]
		if !ok {
			continue
		}
		if err := s.draw(slot, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) draw(slot string, st *slotState) error {
	records := s.filters.Apply(s.table.Records)
	c, v := s.builder.Build(slot, st.kind, st.sources(), records)
	if !v.OK {
		return v.Err()
	}
	if st.options != nil && st.options.Family() == st.kind.Family() && !c.Split() {
		c.Spec.Options = st.options
	}
	return s.registry.Render(c)
}

func (s *Session) addSelected(col string) {
	if !slices.Contains(s.selected, col) {
		s.selected = append(s.selected, col)
	}
}

func (s *Session) removeSelected(col string) {
	for i, c := range s.selected {
		if c == col {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return
		}
	}
}
