package chart

import (
	"fmt"

	"excelviz/domain/core"
)

// StackedLabel is the single category of a single-column stacked bar chart
const StackedLabel = "Total"

// Point is a structured value for scatter and bubble series
type Point struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	R     *float64 `json:"r,omitempty"`
	Label string   `json:"label,omitempty"`
}

// Series is one dataset of a chart. Scalar kinds fill Values, point kinds fill
// Points; never both.
type Series struct {
	Name      string    `json:"label"`
	Values    []float64 `json:"values,omitempty"`
	Points    []Point   `json:"points,omitempty"`
	Color     string    `json:"color"`
	Colors    []string  `json:"colors,omitempty"`
	FillColor string    `json:"fillColor,omitempty"`
}

// Len returns the number of data points in the series
func (s Series) Len() int {
	if s.Points != nil {
		return len(s.Points)
	}
	return len(s.Values)
}

// At returns the magnitude at index i: the value, or the point's y
func (s Series) At(i int) float64 {
	if s.Points != nil {
		return s.Points[i].Y
	}
	return s.Values[i]
}

// Spec is a renderer-agnostic chart description
type Spec struct {
	Kind    Kind     `json:"kind"`
	Columns []string `json:"sourceColumns"`
	Labels  []string `json:"labels"`
	Series  []Series `json:"series"`
	Options Options  `json:"options"`
}

// Multi reports whether the chart draws on more than one source column
func (s Spec) Multi() bool {
	return len(s.Columns) > 1
}

// Validate checks the kind/option pairing and series shape
func (s Spec) Validate() error {
	if !s.Kind.Valid() {
		return core.NewInvalidKindError(string(s.Kind))
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: chart has no source columns", core.ErrInvalidSettings)
	}
	if s.Options == nil || s.Options.Family() != s.Kind.Family() {
		return fmt.Errorf("%w: options do not match kind %s", core.ErrInvalidSettings, s.Kind)
	}
	for _, series := range s.Series {
		if s.Kind.Points() != (series.Points != nil) {
			return fmt.Errorf("%w: series %q shape does not match kind %s", core.ErrInvalidSettings, series.Name, s.Kind)
		}
	}
	return nil
}

// Chart is what occupies a slot: one spec, or for multi-column pie and doughnut
// charts, one part per column plus the combined spec used for persistence.
type Chart struct {
	Slot  string `json:"slot"`
	Spec  Spec   `json:"spec"`
	Parts []Spec `json:"parts,omitempty"`
	Grid  *Grid  `json:"grid,omitempty"`
}

// Split reports whether the chart renders as independent sub-charts
func (c Chart) Split() bool {
	return len(c.Parts) > 0
}
