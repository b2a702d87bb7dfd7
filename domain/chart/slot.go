package chart

import (
	"fmt"
	"regexp"
)

var whitespace = regexp.MustCompile(`\s+`)

// SlotKey derives the stable slot identifier for a column
func SlotKey(column string) string {
	return fmt.Sprintf("chart-%s-canvas", whitespace.ReplaceAllString(column, "_"))
}

// PartKey derives the key of the i-th sub-chart of a split slot
func PartKey(slot string, i int) string {
	return fmt.Sprintf("%s-%d", slot, i)
}
