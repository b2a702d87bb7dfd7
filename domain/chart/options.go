package chart

import (
	"encoding/json"
	"fmt"
	"strings"

	"excelviz/domain/core"
)

const (
	// LineTension is the curve tension for line and area charts
	LineTension = 0.4
	// BubbleScale multiplies sqrt(count) so bubble area tracks magnitude
	BubbleScale = 2.0
	// DoughnutCutout is the inner radius of doughnut charts
	DoughnutCutout = "50%"
)

// Options is display configuration. Each family has its own concrete type so a
// kind can only carry the fields valid for it.
type Options interface {
	Family() Family
	Heading() string
}

// BarOptions covers bar, horizontal-bar and stacked-bar
type BarOptions struct {
	Title       string `json:"title"`
	IndexAxis   string `json:"indexAxis"`
	Stacked     bool   `json:"stacked"`
	BeginAtZero bool   `json:"beginAtZero"`
}

// LineOptions covers line and area
type LineOptions struct {
	Title       string  `json:"title"`
	Fill        bool    `json:"fill"`
	Tension     float64 `json:"tension"`
	BeginAtZero bool    `json:"beginAtZero"`
}

// ArcOptions covers pie and doughnut
type ArcOptions struct {
	Title          string `json:"title"`
	Cutout         string `json:"cutout,omitempty"`
	LegendPosition string `json:"legendPosition"`
}

// RadarOptions covers radar
type RadarOptions struct {
	Title string `json:"title"`
}

// PointOptions covers scatter and bubble
type PointOptions struct {
	Title       string  `json:"title"`
	XAxis       string  `json:"xAxis"`
	BeginAtZero bool    `json:"beginAtZero"`
	BubbleScale float64 `json:"bubbleScale,omitempty"`
}

func (o BarOptions) Family() Family   { return FamilyBar }
func (o LineOptions) Family() Family  { return FamilyLine }
func (o ArcOptions) Family() Family   { return FamilyArc }
func (o RadarOptions) Family() Family { return FamilyRadar }
func (o PointOptions) Family() Family { return FamilyPoint }

func (o BarOptions) Heading() string   { return o.Title }
func (o LineOptions) Heading() string  { return o.Title }
func (o ArcOptions) Heading() string   { return o.Title }
func (o RadarOptions) Heading() string { return o.Title }
func (o PointOptions) Heading() string { return o.Title }

// Title formats the standard heading, e.g. "PIE Chart - Status"
func Title(kind Kind, label string) string {
	return fmt.Sprintf("%s Chart - %s", strings.ToUpper(string(kind)), label)
}

// MultiTitle is the heading used by multi-column charts
const MultiTitle = "Multi-Column Comparison"

// DefaultOptions returns the options for kind with the given title
func DefaultOptions(kind Kind, title string) Options {
	switch kind {
	case Bar:
		return BarOptions{Title: title, IndexAxis: "x", BeginAtZero: true}
	case HorizontalBar:
		return BarOptions{Title: title, IndexAxis: "y", BeginAtZero: true}
	case StackedBar:
		return BarOptions{Title: title, IndexAxis: "x", Stacked: true}
	case Line:
		return LineOptions{Title: title, Tension: LineTension, BeginAtZero: true}
	case Area:
		return LineOptions{Title: title, Fill: true, Tension: LineTension, BeginAtZero: true}
	case Pie:
		return ArcOptions{Title: title, LegendPosition: "bottom"}
	case Doughnut:
		return ArcOptions{Title: title, Cutout: DoughnutCutout, LegendPosition: "bottom"}
	case Radar:
		return RadarOptions{Title: title}
	case Scatter:
		return PointOptions{Title: title, XAxis: "linear", BeginAtZero: true}
	case Bubble:
		return PointOptions{Title: title, XAxis: "linear", BeginAtZero: true, BubbleScale: BubbleScale}
	}
	return nil
}

// DecodeOptions decodes raw JSON into the option type for kind. Empty input
// yields the defaults.
func DecodeOptions(kind Kind, raw json.RawMessage) (Options, error) {
	if !kind.Valid() {
		return nil, core.NewInvalidKindError(string(kind))
	}
	base := DefaultOptions(kind, "")
	if len(raw) == 0 || string(raw) == "null" {
		return base, nil
	}

	var err error
	switch o := base.(type) {
	case BarOptions:
		err = json.Unmarshal(raw, &o)
		base = o
	case LineOptions:
		err = json.Unmarshal(raw, &o)
		base = o
	case ArcOptions:
		err = json.Unmarshal(raw, &o)
		base = o
	case RadarOptions:
		err = json.Unmarshal(raw, &o)
		base = o
	case PointOptions:
		err = json.Unmarshal(raw, &o)
		base = o
	}
	if err != nil {
		return nil, fmt.Errorf("%w: options for %s: %v", core.ErrInvalidSettings, kind, err)
	}
	return base, nil
}
