package aggregate

import (
	"sort"

	"excelviz/domain/dataset"

	"gonum.org/v1/gonum/floats"
)

// Result holds frequency counts of a column's distinct values. Labels keep
// first-seen order.
type Result struct {
	Column string         `json:"column"`
	Labels []string       `json:"labels"`
	Counts map[string]int `json:"counts"`
}

// Count tallies the values of column across records. Null cells are skipped and
// values group by their string form, so the number 5 and the text "5" share a bucket.
func Count(records []dataset.Record, column string) Result {
	res := Result{Column: column, Labels: []string{}, Counts: make(map[string]int)}
	for _, r := range records {
		cell, ok := r.Get(column)
		if !ok {
			continue
		}
		key := cell.String()
		if _, seen := res.Counts[key]; !seen {
			res.Labels = append(res.Labels, key)
		}
		res.Counts[key]++
	}
	return res
}

// Get returns the count for label, zero when absent
func (r Result) Get(label string) int {
	return r.Counts[label]
}

// Len returns the number of distinct values
func (r Result) Len() int {
	return len(r.Labels)
}

// Values returns counts aligned with Labels
func (r Result) Values() []float64 {
	out := make([]float64, len(r.Labels))
	for i, l := range r.Labels {
		out[i] = float64(r.Counts[l])
	}
	return out
}

// Total returns the number of counted records
func (r Result) Total() int {
	total := 0
	for _, c := range r.Counts {
		total += c
	}
	return total
}

// Shares returns each label's percentage of the total, aligned with Labels.
// An empty result yields all zeros.
func (r Result) Shares() []float64 {
	return Shares(r.Values())
}

// Shares returns each value's percentage of the sum of values. A zero sum
// yields all zeros. values is not modified.
func Shares(values []float64) []float64 {
	out := make([]float64, len(values))
	total := floats.Sum(values)
	if total == 0 {
		return out
	}
	floats.ScaleTo(out, 100/total, values)
	return out
}

// Sorted returns a copy with labels in lexicographic order
func (r Result) Sorted() Result {
	labels := append([]string(nil), r.Labels...)
	sort.Strings(labels)
	return Result{Column: r.Column, Labels: labels, Counts: r.Counts}
}

// Union returns the lexicographically sorted union of labels across results
func Union(results ...Result) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, res := range results {
		for _, l := range res.Labels {
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}
	sort.Strings(labels)
	if labels == nil {
		labels = []string{}
	}
	return labels
}

// Align maps a result onto a shared label axis, zero where the result has no rows
func Align(res Result, axis []string) []float64 {
	out := make([]float64, len(axis))
	for i, l := range axis {
		out[i] = float64(res.Counts[l])
	}
	return out
}
