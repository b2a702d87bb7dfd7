package chart

import (
	"strings"

	"excelviz/domain/core"
)

// Kind is a user-facing chart type
type Kind string

const (
	Bar           Kind = "bar"
	HorizontalBar Kind = "horizontal-bar"
	Line          Kind = "line"
	Area          Kind = "area"
	StackedBar    Kind = "stacked-bar"
	Pie           Kind = "pie"
	Doughnut      Kind = "doughnut"
	Radar         Kind = "radar"
	Scatter       Kind = "scatter"
	Bubble        Kind = "bubble"
)

// Kinds lists every supported kind in menu order
var Kinds = []Kind{Bar, HorizontalBar, Line, Area, StackedBar, Pie, Doughnut, Radar, Scatter, Bubble}

// Family groups kinds that share a renderer and option set
type Family string

const (
	FamilyBar   Family = "bar"
	FamilyLine  Family = "line"
	FamilyArc   Family = "arc"
	FamilyRadar Family = "radar"
	FamilyPoint Family = "point"
)

// ParseKind accepts the canonical names plus the "stacked" alias
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "stacked" {
		return StackedBar, nil
	}
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", core.NewInvalidKindError(s)
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

// Family returns the option family for k
func (k Kind) Family() Family {
	switch k {
	case Bar, HorizontalBar, StackedBar:
		return FamilyBar
	case Line, Area:
		return FamilyLine
	case Pie, Doughnut:
		return FamilyArc
	case Radar:
		return FamilyRadar
	case Scatter, Bubble:
		return FamilyPoint
	}
	return ""
}

// RenderType is the renderer's chart type: bar-family variants render as "bar"
// and area renders as "line".
func (k Kind) RenderType() string {
	switch k.Family() {
	case FamilyBar:
		return "bar"
	case FamilyLine:
		return "line"
	}
	return string(k)
}

// Segmented kinds color each label individually
func (k Kind) Segmented() bool {
	return k == Pie || k == Doughnut || k == Radar
}

// Proportional kinds show shares of a whole and cannot overlay series
func (k Kind) Proportional() bool {
	return k.Family() == FamilyArc
}

// Points reports whether series values are structured {x, y, r} points
func (k Kind) Points() bool {
	return k.Family() == FamilyPoint
}
