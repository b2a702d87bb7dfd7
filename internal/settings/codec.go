package settings

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"excelviz/domain/chart"
	"excelviz/domain/core"
	"excelviz/internal/filter"
)

// ChartSource is the read side of a chart registry
type ChartSource interface {
	Keys() []string
	Get(slot string) (chart.Chart, bool)
}

// FilterSource is the read side of a filter engine
type FilterSource interface {
	Columns() []string
	Selection() filter.Selection
}

// View carries the workspace state that lives outside the registry and filters
type View struct {
	FileName         string
	SelectedColumns  []string
	Theme            string
	ColorPreferences map[string]map[string]string
	BaseColors       map[string]string
}

// Snapshot captures every occupied slot in registry order, plus filter
// inclusions and view state. Split pie charts are saved as their combined spec.
func Snapshot(charts ChartSource, filters FilterSource, view View) (*Settings, error) {
	s := &Settings{
		FileName:         view.FileName,
		Charts:           []Entry{},
		SelectedColumns:  append([]string(nil), view.SelectedColumns...),
		Theme:            view.Theme,
		ColorPreferences: view.ColorPreferences,
		BaseColors:       view.BaseColors,
		SavedAt:          time.Now().UTC(),
		Version:          Version,
	}

	if filters != nil {
		s.FilterableColumns = filters.Columns()
		s.FilterSettings = filters.Selection()
	}

	if charts != nil {
		for _, slot := range charts.Keys() {
			c, ok := charts.Get(slot)
			if !ok {
				continue
			}
			entry, err := entryOf(c)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", slot, err)
			}
			s.Charts = append(s.Charts, entry)
		}
	}

	log.Printf("[SettingsCodec] Captured %d chart(s), %d filter column(s)", len(s.Charts), len(s.FilterableColumns))
	return s, nil
}

func entryOf(c chart.Chart) (Entry, error) {
	spec := c.Spec
	opts, err := json.Marshal(spec.Options)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ChartID:       c.Slot,
		Type:          spec.Kind,
		DataLabels:    append([]string{}, spec.Labels...),
		Dataset:       make([]Dataset, len(spec.Series)),
		Options:       opts,
		SourceColumns: append([]string(nil), spec.Columns...),
	}
	if len(spec.Columns) > 0 {
		entry.BaseColumn = spec.Columns[0]
	}

	for i, series := range spec.Series {
		d := Dataset{
			Label:       series.Name,
			Data:        Data{Values: series.Values, Points: series.Points},
			BorderColor: series.Color,
			FillColor:   series.FillColor,
		}
		if len(series.Colors) > 0 {
			d.BackgroundColor = append([]string(nil), series.Colors...)
		} else if series.Color != "" {
			d.BackgroundColor = []string{series.Color}
		}
		entry.Dataset[i] = d
	}
	return entry, nil
}

// Instruction tells the host how to rebuild one slot
type Instruction struct {
	Slot    string
	Kind    chart.Kind
	Columns []string
	Options chart.Options
	// Labels are the saved axis labels, kept for comparison after rebuilding
	Labels []string
}

// Restore turns a saved document into a replay plan. Entries with an unknown
// kind or no columns are skipped and reported in the returned plan's Skipped.
func Restore(s *Settings) (*Plan, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil settings", core.ErrInvalidSettings)
	}
	if s.Version != "" && s.Version != Version {
		log.Printf("[SettingsCodec] Restoring document version %q with reader %s", s.Version, Version)
	}

	plan := &Plan{
		FileName:         s.FileName,
		FilterColumns:    append([]string(nil), s.FilterableColumns...),
		Filters:          filter.Selection{},
		Theme:            s.Theme,
		ColorPreferences: s.ColorPreferences,
		BaseColors:       s.BaseColors,
	}
	for col, values := range s.FilterSettings {
		plan.Filters[col] = append([]string{}, values...)
	}

	seen := make(map[string]bool)
	addColumn := func(col string) {
		if col != "" && !seen[col] {
			seen[col] = true
			plan.Columns = append(plan.Columns, col)
		}
	}
	for _, col := range s.SelectedColumns {
		addColumn(col)
	}

	for _, e := range s.Charts {
		inst, err := instructionOf(e)
		if err != nil {
			log.Printf("[SettingsCodec] Skipping chart %s: %v", e.ChartID, err)
			plan.Skipped = append(plan.Skipped, e.ChartID)
			continue
		}
		addColumn(inst.Columns[0])
		if e.Multi() {
			plan.Multis = append(plan.Multis, inst)
		} else {
			plan.Singles = append(plan.Singles, inst)
		}
	}

	log.Printf("[SettingsCodec] Planned %d single and %d multi chart(s)", len(plan.Singles), len(plan.Multis))
	return plan, nil
}

func instructionOf(e Entry) (Instruction, error) {
	kind, err := chart.ParseKind(string(e.Type))
	if err != nil {
		return Instruction{}, err
	}
	columns := e.Columns()
	if len(columns) == 0 {
		return Instruction{}, fmt.Errorf("%w: chart has no columns", core.ErrInvalidSettings)
	}
	opts, err := chart.DecodeOptions(kind, e.Options)
	if err != nil {
		return Instruction{}, err
	}
	slot := e.ChartID
	if slot == "" {
		slot = chart.SlotKey(columns[0])
	}
	return Instruction{
		Slot:    slot,
		Kind:    kind,
		Columns: append([]string(nil), columns...),
		Options: opts,
		Labels:  e.DataLabels,
	}, nil
}
