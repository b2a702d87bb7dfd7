// Package charting turns aggregation results into renderer-agnostic chart specs
// and tracks the live chart instance of every on-screen slot.
package charting

import (
	"math"

	"excelviz/domain/chart"
	"excelviz/domain/core"
	"excelviz/domain/dataset"
	"excelviz/internal/aggregate"
)

// Builder builds chart specs. Colors come from the color book's explicit picks
// first, then the palette's theme, then DefaultColor.
type Builder struct {
	palette *Palette
	colors  *ColorBook
}

// NewBuilder creates a builder drawing colors from palette and colors
func NewBuilder(palette *Palette, colors *ColorBook) *Builder {
	if palette == nil {
		palette = NewPalette(ThemeDefault, nil)
	}
	if colors == nil {
		colors = NewColorBook()
	}
	return &Builder{palette: palette, colors: colors}
}

// Palette returns the builder's palette
func (b *Builder) Palette() *Palette {
	return b.palette
}

// Colors returns the builder's color book
func (b *Builder) Colors() *ColorBook {
	return b.colors
}

// Build aggregates each column over records and builds the chart for slot.
// Zero columns is a failed validation, one column a single-column chart, and
// more a multi-column chart.
func (b *Builder) Build(slot string, kind chart.Kind, columns []string, records []dataset.Record) (chart.Chart, core.Validation) {
	if len(columns) == 0 {
		return chart.Chart{}, core.EmptySelection("chart")
	}
	if !kind.Valid() {
		return chart.Chart{}, core.Validation{Reason: core.NewInvalidKindError(string(kind)).Error()}
	}
	results := make([]aggregate.Result, len(columns))
	for i, col := range columns {
		results[i] = aggregate.Count(records, col)
	}
	if len(results) == 1 {
		return b.Single(slot, kind, results[0]), core.Valid
	}
	return b.Multi(slot, kind, results)
}

// Single builds a one-column chart. Stacked bars get one series per value, each
// holding a single "Total" point.
func (b *Builder) Single(slot string, kind chart.Kind, res aggregate.Result) chart.Chart {
	column := res.Column
	base := b.colors.BaseColor(slot)
	counts := res.Values()

	spec := chart.Spec{
		Kind:    kind,
		Columns: []string{column},
		Labels:  append([]string{}, res.Labels...),
		Options: chart.DefaultOptions(kind, chart.Title(kind, column)),
	}

	switch {
	case kind == chart.StackedBar:
		spec.Labels = []string{chart.StackedLabel}
		spec.Series = make([]chart.Series, len(res.Labels))
		for i, label := range res.Labels {
			color := b.valueColor(column, label)
			spec.Series[i] = chart.Series{Name: label, Values: []float64{counts[i]}, Color: color}
		}

	case kind.Points():
		spec.Series = []chart.Series{{
			Name:   column,
			Points: points(kind, res.Labels, counts),
			Color:  base,
		}}

	case kind.Segmented():
		colors := make([]string, len(res.Labels))
		for i, label := range res.Labels {
			colors[i] = b.valueColor(column, label)
		}
		spec.Series = []chart.Series{{Name: column, Values: counts, Color: base, Colors: colors}}

	default:
		series := chart.Series{Name: column, Values: counts, Color: base}
		if kind == chart.Area {
			series.FillColor = WithAlpha(base, "40")
		}
		spec.Series = []chart.Series{series}
	}

	return chart.Chart{Slot: slot, Spec: spec}
}

// Multi builds a chart over several columns against one shared label axis: the
// sorted union of every column's values. Pie and doughnut charts split into one
// sub-chart per column instead of overlaying proportions.
func (b *Builder) Multi(slot string, kind chart.Kind, results []aggregate.Result) (chart.Chart, core.Validation) {
	switch len(results) {
	case 0:
		return chart.Chart{}, core.EmptySelection("compare")
	case 1:
		return b.Single(slot, kind, results[0]), core.Valid
	}
	if kind.Proportional() {
		return b.split(slot, kind, results), core.Valid
	}

	axis := aggregate.Union(results...)
	columns := columnsOf(results)

	spec := chart.Spec{
		Kind:    kind,
		Columns: columns,
		Labels:  axis,
		Series:  make([]chart.Series, len(results)),
		Options: chart.DefaultOptions(kind, chart.MultiTitle),
	}
	for i, res := range results {
		color := resolve("", false, b.palette.Next)
		values := aggregate.Align(res, axis)
		series := chart.Series{Name: res.Column, Color: color}
		if kind.Points() {
			series.Points = points(kind, axis, values)
		} else {
			series.Values = values
		}
		if kind == chart.Area {
			series.FillColor = WithAlpha(color, "40")
		}
		spec.Series[i] = series
	}

	return chart.Chart{Slot: slot, Spec: spec, Grid: grid(columns, axis, results)}, core.Valid
}

// split renders N single-column pies sharing one value-to-color mapping. The
// combined spec keeps every column aligned on the shared axis for persistence.
func (b *Builder) split(slot string, kind chart.Kind, results []aggregate.Result) chart.Chart {
	axis := aggregate.Union(results...)
	columns := columnsOf(results)

	colorOf := make(map[string]string, len(axis))
	for _, label := range axis {
		explicit, ok := b.firstOverride(columns, label)
		colorOf[label] = resolve(explicit, ok, b.palette.Next)
	}
	axisColors := make([]string, len(axis))
	for i, label := range axis {
		axisColors[i] = colorOf[label]
	}

	combined := chart.Spec{
		Kind:    kind,
		Columns: columns,
		Labels:  axis,
		Series:  make([]chart.Series, len(results)),
		Options: chart.DefaultOptions(kind, chart.MultiTitle),
	}
	parts := make([]chart.Spec, len(results))

	for i, res := range results {
		combined.Series[i] = chart.Series{
			Name:   res.Column,
			Values: aggregate.Align(res, axis),
			Color:  axisColors[0],
			Colors: axisColors,
		}

		colors := make([]string, len(res.Labels))
		for j, label := range res.Labels {
			colors[j] = colorOf[label]
		}
		parts[i] = chart.Spec{
			Kind:    kind,
			Columns: []string{res.Column},
			Labels:  append([]string{}, res.Labels...),
			Series:  []chart.Series{{Name: res.Column, Values: res.Values(), Color: b.colors.BaseColor(slot), Colors: colors}},
			Options: chart.DefaultOptions(kind, res.Column),
		}
	}

	return chart.Chart{Slot: slot, Spec: combined, Parts: parts, Grid: grid(columns, axis, results)}
}

func (b *Builder) valueColor(column, value string) string {
	explicit, ok := b.colors.ValueColor(column, value)
	return resolve(explicit, ok, b.palette.Next)
}

func (b *Builder) firstOverride(columns []string, value string) (string, bool) {
	for _, col := range columns {
		if c, ok := b.colors.ValueColor(col, value); ok {
			return c, true
		}
	}
	return "", false
}

// points places value i at x=i. Bubble radius grows with sqrt(count) so the
// bubble's area, not its radius, is proportional to the count.
func points(kind chart.Kind, labels []string, values []float64) []chart.Point {
	out := make([]chart.Point, len(values))
	for i, v := range values {
		p := chart.Point{X: float64(i), Y: v}
		if i < len(labels) {
			p.Label = labels[i]
		}
		if kind == chart.Bubble {
			r := math.Sqrt(v) * chart.BubbleScale
			p.R = &r
		}
		out[i] = p
	}
	return out
}

func columnsOf(results []aggregate.Result) []string {
	cols := make([]string, len(results))
	for i, r := range results {
		cols[i] = r.Column
	}
	return cols
}

func grid(columns, axis []string, results []aggregate.Result) *chart.Grid {
	byColumn := make(map[string]aggregate.Result, len(results))
	for _, r := range results {
		byColumn[r.Column] = r
	}
	return chart.NewGrid(columns, axis, func(column, label string) int {
		return byColumn[column].Get(label)
	})
}
