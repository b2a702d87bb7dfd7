package charting

import (
	"math"
	"math/rand"
	"testing"

	"excelviz/domain/chart"
	"excelviz/domain/dataset"
	"excelviz/internal/aggregate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func column(name string, values ...string) []dataset.Record {
	out := make([]dataset.Record, len(values))
	for i, v := range values {
		out[i] = dataset.Record{name: dataset.TextCell(v)}
	}
	return out
}

func result(col string, labels []string, counts ...int) aggregate.Result {
	res := aggregate.Result{Column: col, Labels: labels, Counts: map[string]int{}}
	for i, l := range labels {
		res.Counts[l] = counts[i]
	}
	return res
}

func newTestBuilder(theme Theme) *Builder {
	return NewBuilder(NewPalette(theme, rand.New(rand.NewSource(7))), NewColorBook())
}

func TestBuildPieFromStatusColumn(t *testing.T) {
	b := newTestBuilder(ThemePastel)
	records := column("Status", "Open", "Closed", "Open", "Open")

	c, v := b.Build(chart.SlotKey("Status"), chart.Pie, []string{"Status"}, records)
	require.True(t, v.OK)

	assert.Equal(t, "chart-Status-canvas", c.Slot)
	assert.Equal(t, []string{"Open", "Closed"}, c.Spec.Labels)
	require.Len(t, c.Spec.Series, 1)
	assert.Equal(t, []float64{3, 1}, c.Spec.Series[0].Values)
	assert.Len(t, c.Spec.Series[0].Colors, 2)
	for _, col := range c.Spec.Series[0].Colors {
		assert.Contains(t, themeColors[ThemePastel], col)
	}
	assert.Equal(t, "PIE Chart - Status", c.Spec.Options.Heading())
	assert.NoError(t, c.Spec.Validate())
}

func TestBuildEmptySelection(t *testing.T) {
	c, v := newTestBuilder(ThemeDefault).Build("slot", chart.Bar, nil, column("A", "x"))
	assert.False(t, v.OK)
	assert.Empty(t, c.Slot)
}

func TestSingleStackedBar(t *testing.T) {
	c := newTestBuilder(ThemeNeon).Single("s", chart.StackedBar, result("C", []string{"a", "b"}, 3, 5))

	assert.Equal(t, []string{chart.StackedLabel}, c.Spec.Labels)
	require.Len(t, c.Spec.Series, 2)
	assert.Equal(t, "a", c.Spec.Series[0].Name)
	assert.Equal(t, []float64{3}, c.Spec.Series[0].Values)
	assert.Equal(t, "b", c.Spec.Series[1].Name)
	assert.Equal(t, []float64{5}, c.Spec.Series[1].Values)
	assert.True(t, c.Spec.Options.(chart.BarOptions).Stacked)
}

func TestSingleBarUsesBaseColor(t *testing.T) {
	b := newTestBuilder(ThemeNeon)
	c := b.Single("s", chart.Bar, result("C", []string{"a"}, 1))
	assert.Equal(t, DefaultColor, c.Spec.Series[0].Color)

	require.NoError(t, b.Colors().SetBaseColor("s", "#112233"))
	c = b.Single("s", chart.Area, result("C", []string{"a"}, 1))
	assert.Equal(t, "#112233", c.Spec.Series[0].Color)
	assert.Equal(t, "#11223340", c.Spec.Series[0].FillColor)
}

func TestExplicitValueColorWins(t *testing.T) {
	b := newTestBuilder(ThemeDark)
	require.NoError(t, b.Colors().SetValueColor("Status", "Open", "#ff0000"))

	c := b.Single("s", chart.Doughnut, result("Status", []string{"Open", "Closed"}, 3, 1))
	assert.Equal(t, "#ff0000", c.Spec.Series[0].Colors[0])
	assert.Contains(t, themeColors[ThemeDark], c.Spec.Series[0].Colors[1])
}

func TestScatterAndBubblePoints(t *testing.T) {
	b := newTestBuilder(ThemeDefault)
	res := result("C", []string{"a", "b"}, 4, 9)

	scatter := b.Single("s", chart.Scatter, res)
	require.Len(t, scatter.Spec.Series[0].Points, 2)
	assert.Nil(t, scatter.Spec.Series[0].Values)
	p := scatter.Spec.Series[0].Points[1]
	assert.Equal(t, 1.0, p.X)
	assert.Equal(t, 9.0, p.Y)
	assert.Nil(t, p.R)

	bubble := b.Single("s", chart.Bubble, res)
	for i, want := range []float64{4, 6} {
		require.NotNil(t, bubble.Spec.Series[0].Points[i].R)
		assert.InDelta(t, want, *bubble.Spec.Series[0].Points[i].R, 1e-9)
	}
	assert.InDelta(t, math.Sqrt(9)*chart.BubbleScale, *bubble.Spec.Series[0].Points[1].R, 1e-9)
}

func TestMultiSharedAxis(t *testing.T) {
	b := newTestBuilder(ThemePastel)
	a := result("A", []string{"x", "y"}, 2, 1)
	bb := result("B", []string{"y", "z"}, 3, 1)

	c, v := b.Multi("s", chart.Bar, []aggregate.Result{a, bb})
	require.True(t, v.OK)

	assert.Equal(t, []string{"x", "y", "z"}, c.Spec.Labels)
	assert.Equal(t, []string{"A", "B"}, c.Spec.Columns)
	assert.Equal(t, []float64{2, 1, 0}, c.Spec.Series[0].Values)
	assert.Equal(t, []float64{0, 3, 1}, c.Spec.Series[1].Values)
	assert.Equal(t, chart.MultiTitle, c.Spec.Options.Heading())
	require.NotNil(t, c.Grid)
	assert.Equal(t, 7, c.Grid.Total)
	assert.False(t, c.Split())
}

func TestMultiBubbleUsesAxisPoints(t *testing.T) {
	b := newTestBuilder(ThemeDefault)
	c, _ := b.Multi("s", chart.Bubble, []aggregate.Result{
		result("A", []string{"x"}, 4),
		result("B", []string{"y"}, 1),
	})
	pts := c.Spec.Series[0].Points
	require.Len(t, pts, 2)
	assert.Equal(t, 4.0, pts[0].Y)
	assert.Equal(t, 0.0, pts[1].Y)
	assert.Equal(t, "y", pts[1].Label)
}

func TestMultiPieSplitsWithSharedColors(t *testing.T) {
	b := newTestBuilder(ThemeDefault)
	c, v := b.Multi("chart-A-canvas", chart.Pie, []aggregate.Result{
		result("A", []string{"x", "y"}, 2, 1),
		result("B", []string{"y", "z"}, 3, 1),
	})
	require.True(t, v.OK)
	require.True(t, c.Split())
	require.Len(t, c.Parts, 2)

	assert.Equal(t, []string{"x", "y"}, c.Parts[0].Labels)
	assert.Equal(t, []string{"y", "z"}, c.Parts[1].Labels)
	assert.Equal(t, c.Parts[0].Series[0].Colors[1], c.Parts[1].Series[0].Colors[0], "value y keeps one color")
	assert.Equal(t, "A", c.Parts[0].Options.Heading())

	assert.Equal(t, []string{"x", "y", "z"}, c.Spec.Labels)
	assert.Equal(t, []float64{0, 3, 1}, c.Spec.Series[1].Values)
	assert.Equal(t, []int{3, 4}, c.Grid.ColumnTotals)
}

func TestMultiWithOneColumnIsSingle(t *testing.T) {
	c, v := newTestBuilder(ThemeDefault).Multi("s", chart.Line, []aggregate.Result{result("A", []string{"x"}, 1)})
	require.True(t, v.OK)
	assert.False(t, c.Spec.Multi())
	assert.Equal(t, "LINE Chart - A", c.Spec.Options.Heading())
}

func TestPaletteThemes(t *testing.T) {
	p := NewPalette(ThemeDefault, rand.New(rand.NewSource(1)))
	for i := 0; i < 20; i++ {
		assert.True(t, ValidColor(p.Next()))
	}

	require.NoError(t, p.SetTheme("neon"))
	assert.Contains(t, themeColors[ThemeNeon], p.Next())
	assert.Error(t, p.SetTheme("sepia"))
	assert.Equal(t, ThemeNeon, p.Theme())
}

func TestColorBookRejectsMalformedColors(t *testing.T) {
	book := NewColorBook()
	assert.Error(t, book.SetValueColor("A", "x", "red"))
	assert.Error(t, book.SetBaseColor("s", "#12"))

	book.Load(map[string]map[string]string{"A": {"x": "#abc", "y": "nope"}}, map[string]string{"s": "#123456"})
	assert.Equal(t, map[string]map[string]string{"A": {"x": "#abc"}}, book.Preferences())
	assert.Equal(t, "#123456", book.BaseColor("s"))
	assert.Equal(t, DefaultColor, book.BaseColor("other"))

	book.Load(nil, map[string]string{"other": "#654321"})
	assert.Empty(t, book.Preferences())
	assert.Equal(t, DefaultColor, book.BaseColor("s"))
	assert.Equal(t, "#654321", book.BaseColor("other"))
}
