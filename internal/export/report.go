package export

import (
	"fmt"
	"strings"

	"excelviz/domain/chart"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// GridTable renders a comparison grid as a markdown table: one row per column,
// one cell per value, with row and column totals.
func GridTable(g *chart.Grid) string {
	if g == nil || len(g.Columns) == 0 {
		return ""
	}
	var b strings.Builder

	b.WriteString("| Column |")
	for _, label := range g.Labels {
		fmt.Fprintf(&b, " %s |", cell(label))
	}
	b.WriteString(" Total |\n|---|")
	for range g.Labels {
		b.WriteString("---:|")
	}
	b.WriteString("---:|\n")

	for j, col := range g.Columns {
		fmt.Fprintf(&b, "| %s |", cell(col))
		for i := range g.Labels {
			fmt.Fprintf(&b, " %d |", g.Counts[i][j])
		}
		fmt.Fprintf(&b, " %d |\n", g.ColumnTotals[j])
	}

	b.WriteString("| **Total** |")
	for i := range g.Labels {
		fmt.Fprintf(&b, " %d |", g.RowTotals[i])
	}
	fmt.Fprintf(&b, " %d |\n", g.Total)
	return b.String()
}

// Report builds a markdown report: a title, the filter summary, and for each
// chart its summary lines and, when it compares columns, its grid.
func Report(title, filterSummary string, charts []chart.Chart) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if filterSummary != "" {
		fmt.Fprintf(&b, "_%s_\n\n", filterSummary)
	}

	for _, c := range charts {
		heading := c.Slot
		if c.Spec.Options != nil && c.Spec.Options.Heading() != "" {
			heading = c.Spec.Options.Heading()
		}
		fmt.Fprintf(&b, "## %s\n\n", heading)
		fmt.Fprintf(&b, "Kind: `%s`, columns: %s\n\n", c.Spec.Kind, strings.Join(c.Spec.Columns, ", "))

		if c.Grid != nil && c.Spec.Multi() {
			b.WriteString(GridTable(c.Grid))
			b.WriteString("\n")
			continue
		}

		triples := Summarize(c.Spec)
		if len(triples) == 0 {
			b.WriteString("No data.\n\n")
			continue
		}
		for _, t := range triples {
			fmt.Fprintf(&b, "- %s\n", cell(t.String()))
		}
		if st, err := Describe(triples); err == nil {
			fmt.Fprintf(&b, "\nTotal %s, mean %.2f, median %.2f. Largest: %s (%.1f%%).\n",
				FormatValue(st.Total), st.Mean, st.Median, cell(st.TopLabel), st.TopShare)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders markdown to a standalone HTML page
func HTML(title, md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
	})
	return markdown.Render(doc, renderer)
}

// cell escapes characters that would break a markdown table or list item
func cell(s string) string {
	if s == "" {
		return "(blank)"
	}
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
