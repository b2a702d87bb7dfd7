// Package filter keeps the user's filterable columns and per-value inclusion
// checkboxes, and narrows a record set to the rows that pass every one of them.
package filter

import (
	"fmt"
	"strings"

	"excelviz/domain/core"
	"excelviz/domain/dataset"
)

// Selection maps a filter column to its included values, in first-seen order
type Selection map[string][]string

// Engine holds filter state for one dataset
type Engine struct {
	records  []dataset.Record
	columns  []string
	values   map[string][]string
	included map[string]map[string]bool
}

// NewEngine creates an engine over the dataset whose distinct values seed each filter
func NewEngine(records []dataset.Record) *Engine {
	return &Engine{
		records:  records,
		values:   make(map[string][]string),
		included: make(map[string]map[string]bool),
	}
}

// Key is the string a record is filtered under for column; null cells use "".
func Key(r dataset.Record, column string) string {
	cell, ok := r.Get(column)
	if !ok {
		return ""
	}
	return cell.String()
}

// Register replaces the set of filterable columns. Every distinct value observed
// for each column starts out included.
func (e *Engine) Register(columns []string) core.Validation {
	if len(columns) == 0 {
		return core.EmptySelection("filter")
	}

	e.columns = e.columns[:0]
	e.values = make(map[string][]string, len(columns))
	e.included = make(map[string]map[string]bool, len(columns))

	for _, col := range columns {
		if _, dup := e.values[col]; dup {
			continue
		}
		distinct := distinctValues(e.records, col)
		inc := make(map[string]bool, len(distinct))
		for _, v := range distinct {
			inc[v] = true
		}
		e.columns = append(e.columns, col)
		e.values[col] = distinct
		e.included[col] = inc
	}
	return core.Valid
}

// SetInclusion toggles one value for one column. It reports false, changing
// nothing, when the column is not registered.
func (e *Engine) SetInclusion(column, value string, included bool) bool {
	inc, ok := e.included[column]
	if !ok {
		return false
	}
	inc[value] = included
	return true
}

// Apply returns the records whose value for every registered column is included.
// An empty inclusion set yields no rows.
func (e *Engine) Apply(records []dataset.Record) []dataset.Record {
	out := make([]dataset.Record, 0, len(records))
	for _, r := range records {
		if e.passes(r) {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) passes(r dataset.Record) bool {
	for _, col := range e.columns {
		if !e.included[col][Key(r, col)] {
			return false
		}
	}
	return true
}

// Columns returns the registered filter columns in registration order
func (e *Engine) Columns() []string {
	return append([]string(nil), e.columns...)
}

// Registered reports whether column has a filter
func (e *Engine) Registered(column string) bool {
	_, ok := e.included[column]
	return ok
}

// Values returns every distinct value observed for a registered column
func (e *Engine) Values(column string) []string {
	return append([]string(nil), e.values[column]...)
}

// Included returns the currently included values for column in first-seen order
func (e *Engine) Included(column string) []string {
	var out []string
	for _, v := range e.values[column] {
		if e.included[column][v] {
			out = append(out, v)
		}
	}
	return out
}

// Selection captures current inclusions for every registered column
func (e *Engine) Selection() Selection {
	sel := make(Selection, len(e.columns))
	for _, col := range e.columns {
		inc := e.Included(col)
		if inc == nil {
			inc = []string{}
		}
		sel[col] = inc
	}
	return sel
}

// Restore applies a saved selection: listed values are included, all others
// excluded. Columns absent from sel keep their current state; columns in sel
// that are not registered are ignored.
func (e *Engine) Restore(sel Selection) {
	for col, values := range sel {
		inc, ok := e.included[col]
		if !ok {
			continue
		}
		for v := range inc {
			inc[v] = false
		}
		for _, v := range values {
			inc[v] = true
		}
	}
}

// Summary describes active filters as "Active filters: col: k/n selected, ..."
func (e *Engine) Summary() string {
	var active []string
	for _, col := range e.columns {
		total := len(e.values[col])
		checked := len(e.Included(col))
		if checked < total {
			active = append(active, fmt.Sprintf("%s: %d/%d selected", col, checked, total))
		}
	}
	if len(active) == 0 {
		return "No filters applied"
	}
	return "Active filters: " + strings.Join(active, ", ")
}

func distinctValues(records []dataset.Record, column string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		k := Key(r, column)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
