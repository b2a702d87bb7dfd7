// Package settings converts live chart and filter state to and from the JSON
// document saved per project, and replays a saved document in two phases.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"excelviz/domain/chart"
	"excelviz/domain/core"
)

// Version is stamped into every saved document
const Version = "1.0"

// Settings is the persisted form of a project's chart workspace
type Settings struct {
	FileName          string                       `json:"fileName"`
	Charts            []Entry                      `json:"charts"`
	FilterableColumns []string                     `json:"filterableColumns,omitempty"`
	FilterSettings    map[string][]string          `json:"filterSettings,omitempty"`
	SelectedColumns   []string                     `json:"selectedColumns,omitempty"`
	Theme             string                       `json:"theme,omitempty"`
	ColorPreferences  map[string]map[string]string `json:"colorPreferences,omitempty"`
	BaseColors        map[string]string            `json:"baseColors,omitempty"`
	SavedAt           time.Time                    `json:"savedAt"`
	Version           string                       `json:"version"`
}

// Entry is one saved chart slot
type Entry struct {
	ChartID       string          `json:"chartId"`
	Type          chart.Kind      `json:"type"`
	DataLabels    []string        `json:"dataLabels"`
	Dataset       []Dataset       `json:"dataset"`
	Options       json.RawMessage `json:"options,omitempty"`
	SourceColumns []string        `json:"sourceColumns,omitempty"`
	BaseColumn    string          `json:"baseColumn,omitempty"`
}

// Dataset is one saved series
type Dataset struct {
	Label           string   `json:"label"`
	Data            Data     `json:"data"`
	BackgroundColor []string `json:"backgroundColor,omitempty"`
	BorderColor     string   `json:"borderColor,omitempty"`
	FillColor       string   `json:"fillColor,omitempty"`
}

// Data holds either scalar values or structured points. It encodes as a plain
// JSON array of numbers or of {x, y, r} objects.
type Data struct {
	Values []float64
	Points []chart.Point
}

func (d Data) MarshalJSON() ([]byte, error) {
	if d.Points != nil {
		return json.Marshal(d.Points)
	}
	if d.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.Values)
}

func (d *Data) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw[0]), []byte("{")) {
		d.Values = nil
		return json.Unmarshal(b, &d.Points)
	}
	d.Points = nil
	d.Values = make([]float64, 0, len(raw))
	for _, r := range raw {
		var v *float64
		if err := json.Unmarshal(r, &v); err != nil {
			return err
		}
		if v == nil {
			d.Values = append(d.Values, 0)
			continue
		}
		d.Values = append(d.Values, *v)
	}
	return nil
}

// Columns returns the source columns of the entry. Documents written without
// sourceColumns fall back to the base column or the dataset labels.
func (e Entry) Columns() []string {
	if len(e.SourceColumns) > 0 {
		return e.SourceColumns
	}
	if e.kind() == chart.StackedBar || len(e.Dataset) <= 1 {
		if e.BaseColumn != "" {
			return []string{e.BaseColumn}
		}
		if len(e.Dataset) > 0 {
			return []string{e.Dataset[0].Label}
		}
		return nil
	}
	cols := make([]string, len(e.Dataset))
	for i, d := range e.Dataset {
		cols[i] = d.Label
	}
	return cols
}

// Multi reports whether the entry restores as a multi-column chart. Without
// sourceColumns, more than one dataset means multi, except for stacked bars
// whose datasets are the values of one column.
func (e Entry) Multi() bool {
	if len(e.SourceColumns) > 0 {
		return len(e.SourceColumns) > 1
	}
	return len(e.Dataset) > 1 && e.kind() != chart.StackedBar
}

func (e Entry) kind() chart.Kind {
	k, err := chart.ParseKind(string(e.Type))
	if err != nil {
		return e.Type
	}
	return k
}

// Marshal encodes settings as indented JSON
func Marshal(s *Settings) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil settings", core.ErrInvalidSettings)
	}
	return json.MarshalIndent(s, "", "  ")
}

// Unmarshal decodes a saved document. Malformed JSON wraps ErrInvalidSettings.
func Unmarshal(b []byte) (*Settings, error) {
	var s Settings
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidSettings, err)
	}
	if s.Version == "" {
		s.Version = Version
	}
	return &s, nil
}
