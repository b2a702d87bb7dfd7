package chart

// Grid is a value-by-column count table with totals
type Grid struct {
	Columns      []string `json:"columns"`
	Labels       []string `json:"labels"`
	Counts       [][]int  `json:"counts"` // Counts[label][column]
	RowTotals    []int    `json:"rowTotals"`
	ColumnTotals []int    `json:"columnTotals"`
	Total        int      `json:"total"`
}

// NewGrid builds a grid from per-column counts over a shared label axis
func NewGrid(columns, labels []string, count func(column, label string) int) *Grid {
	g := &Grid{
		Columns:      columns,
		Labels:       labels,
		Counts:       make([][]int, len(labels)),
		RowTotals:    make([]int, len(labels)),
		ColumnTotals: make([]int, len(columns)),
	}
	for i, label := range labels {
		g.Counts[i] = make([]int, len(columns))
		for j, col := range columns {
			n := count(col, label)
			g.Counts[i][j] = n
			g.RowTotals[i] += n
			g.ColumnTotals[j] += n
			g.Total += n
		}
	}
	return g
}
