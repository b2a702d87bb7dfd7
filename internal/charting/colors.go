package charting

import (
	"fmt"

	"excelviz/domain/core"
)

// ColorBook stores explicit user color picks: per-value overrides keyed by
// column, and a base color per slot. Overrides outlive individual renders.
type ColorBook struct {
	values map[string]map[string]string
	base   map[string]string
}

// NewColorBook creates an empty color book
func NewColorBook() *ColorBook {
	return &ColorBook{
		values: make(map[string]map[string]string),
		base:   make(map[string]string),
	}
}

// SetValueColor pins the color of one value of a column
func (b *ColorBook) SetValueColor(column, value, color string) error {
	if !ValidColor(color) {
		return fmt.Errorf("%w: color %q", core.ErrInvalidSettings, color)
	}
	if b.values[column] == nil {
		b.values[column] = make(map[string]string)
	}
	b.values[column][value] = color
	return nil
}

// ValueColor returns the pinned color for a value, if any
func (b *ColorBook) ValueColor(column, value string) (string, bool) {
	c, ok := b.values[column][value]
	return c, ok
}

// SetBaseColor pins the series color of a slot
func (b *ColorBook) SetBaseColor(slot, color string) error {
	if !ValidColor(color) {
		return fmt.Errorf("%w: color %q", core.ErrInvalidSettings, color)
	}
	b.base[slot] = color
	return nil
}

// BaseColor returns the slot's series color, falling back to DefaultColor
func (b *ColorBook) BaseColor(slot string) string {
	if c, ok := b.base[slot]; ok {
		return c
	}
	return DefaultColor
}

// Preferences returns a copy of the per-value overrides for persistence
func (b *ColorBook) Preferences() map[string]map[string]string {
	out := make(map[string]map[string]string, len(b.values))
	for col, vals := range b.values {
		m := make(map[string]string, len(vals))
		for v, c := range vals {
			m[v] = c
		}
		out[col] = m
	}
	return out
}

// BaseColors returns a copy of the per-slot colors for persistence
func (b *ColorBook) BaseColors() map[string]string {
	out := make(map[string]string, len(b.base))
	for k, v := range b.base {
		out[k] = v
	}
	return out
}

// Load replaces every pick with the saved preferences, skipping malformed colors
func (b *ColorBook) Load(values map[string]map[string]string, base map[string]string) {
	b.values = make(map[string]map[string]string, len(values))
	b.base = make(map[string]string, len(base))
	for col, vals := range values {
		for v, c := range vals {
			_ = b.SetValueColor(col, v, c)
		}
	}
	for slot, c := range base {
		_ = b.SetBaseColor(slot, c)
	}
}

// resolve applies the color precedence: explicit override, then theme, then default
func resolve(explicit string, ok bool, theme func() string) string {
	if ok && explicit != "" {
		return explicit
	}
	if theme != nil {
		if c := theme(); c != "" {
			return c
		}
	}
	return DefaultColor
}
