package export

import (
	"strings"
	"testing"

	"excelviz/domain/chart"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pieSpec() chart.Spec {
	return chart.Spec{
		Kind:    chart.Pie,
		Columns: []string{"Status"},
		Labels:  []string{"Open", "Closed"},
		Series:  []chart.Series{{Name: "Status", Values: []float64{3, 1}}},
		Options: chart.DefaultOptions(chart.Pie, chart.Title(chart.Pie, "Status")),
	}
}

func TestSummarize(t *testing.T) {
	triples := Summarize(pieSpec())
	require.Len(t, triples, 2)
	assert.Equal(t, "Open: 3 (75.0%)", triples[0].String())
	assert.Equal(t, "Closed: 1 (25.0%)", triples[1].String())
	assert.Equal(t, "Open: 3 (75.0%)\nClosed: 1 (25.0%)\n", Lines(triples))
}

func TestSummarizeStackedAndPoints(t *testing.T) {
	stacked := chart.Spec{
		Kind:    chart.StackedBar,
		Columns: []string{"C"},
		Labels:  []string{chart.StackedLabel},
		Series: []chart.Series{
			{Name: "a", Values: []float64{3}},
			{Name: "b", Values: []float64{5}},
		},
	}
	triples := Summarize(stacked)
	assert.Equal(t, []string{"a: 3 (37.5%)", "b: 5 (62.5%)"}, []string{triples[0].String(), triples[1].String()})

	scatter := chart.Spec{
		Kind:    chart.Scatter,
		Columns: []string{"C"},
		Labels:  []string{"x", "y"},
		Series:  []chart.Series{{Name: "C", Points: []chart.Point{{X: 0, Y: 1}, {X: 1, Y: 1}}}},
	}
	assert.Equal(t, 50.0, Summarize(scatter)[1].Percent)
}

func TestSummarizeZeroTotal(t *testing.T) {
	spec := pieSpec()
	spec.Series[0].Values = []float64{0, 0}
	for _, tr := range Summarize(spec) {
		assert.Zero(t, tr.Percent)
	}
	assert.Empty(t, Summarize(chart.Spec{Kind: chart.Bar}))
}

func TestDescribe(t *testing.T) {
	st, err := Describe(Summarize(pieSpec()))
	require.NoError(t, err)
	assert.Equal(t, 4.0, st.Total)
	assert.Equal(t, 2.0, st.Mean)
	assert.Equal(t, 2.0, st.Median)
	assert.Equal(t, "Open", st.TopLabel)
	assert.InDelta(t, 75.0, st.TopShare, 1e-9)

	empty, err := Describe(nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
}

func TestGridTable(t *testing.T) {
	counts := map[string]map[string]int{"A": {"x": 2, "y": 1}, "B": {"y": 3, "z": 1}}
	g := chart.NewGrid([]string{"A", "B"}, []string{"x", "y", "z"}, func(col, label string) int {
		return counts[col][label]
	})

	table := GridTable(g)
	lines := strings.Split(strings.TrimSpace(table), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "| Column | x | y | z | Total |", lines[0])
	assert.Equal(t, "| A | 2 | 1 | 0 | 3 |", lines[2])
	assert.Equal(t, "| B | 0 | 3 | 1 | 4 |", lines[3])
	assert.Equal(t, "| **Total** | 2 | 4 | 1 | 7 |", lines[4])

	assert.Empty(t, GridTable(nil))
}

func TestReportHTML(t *testing.T) {
	md := Report("tickets.xlsx", "No filters applied", []chart.Chart{{Slot: "chart-Status-canvas", Spec: pieSpec()}})
	assert.Contains(t, md, "# tickets.xlsx")
	assert.Contains(t, md, "## PIE Chart - Status")
	assert.Contains(t, md, "- Open: 3 (75.0%)")

	page := string(HTML("tickets.xlsx", md))
	assert.Contains(t, page, "<title>tickets.xlsx</title>")
	assert.Contains(t, page, "<li>Open: 3 (75.0%)</li>")
	assert.Contains(t, page, "<em>No filters applied</em>")
}
