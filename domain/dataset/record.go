package dataset

import (
	"strconv"
)

// CellKind distinguishes the scalar shapes a spreadsheet cell can take
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is a single scalar value read from a sheet
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// TextCell creates a text cell; empty text is treated as a missing value
func TextCell(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell creates a numeric cell
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// IsNull reports whether the cell carries no value
func (c Cell) IsNull() bool {
	return c.Kind == CellEmpty
}

// String returns the canonical string form used for grouping and filtering.
// Numbers use the shortest representation that round-trips, so 5 and "5" collide.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Record maps column name to cell. Missing keys are null.
type Record map[string]Cell

// Get returns the cell for a column, reporting false when the record has no value
func (r Record) Get(column string) (Cell, bool) {
	c, ok := r[column]
	if !ok || c.IsNull() {
		return Cell{}, false
	}
	return c, true
}

// Table is a decoded sheet: records in source order plus the ordered column list
type Table struct {
	Source  string   `json:"source"`
	Columns []string `json:"columns"`
	Records []Record `json:"-"`
}

// Empty reports whether the table has no rows
func (t *Table) Empty() bool {
	return t == nil || len(t.Records) == 0
}

// HasColumn reports whether name is one of the table's columns
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
