// Package export produces the textual side of a chart: per-label summaries,
// comparison grids and a markdown/HTML report.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"excelviz/domain/chart"
	"excelviz/internal/aggregate"

	"github.com/montanaflynn/stats"
)

// Triple is one label of a chart with its value and share of the total
type Triple struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// String formats the triple as "label: value (p%)" with one decimal
func (t Triple) String() string {
	return fmt.Sprintf("%s: %s (%.1f%%)", t.Label, FormatValue(t.Value), t.Percent)
}

// FormatValue prints counts without a trailing fraction
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Summarize lists label/value/percent for the first series of spec. Stacked
// bars, which hold one series per value, are summarized across series. A zero
// total yields zero percentages.
func Summarize(spec chart.Spec) []Triple {
	labels, values := flatten(spec)
	shares := aggregate.Shares(values)

	out := make([]Triple, len(values))
	for i, v := range values {
		t := Triple{Value: v, Percent: shares[i]}
		if i < len(labels) {
			t.Label = labels[i]
		}
		out[i] = t
	}
	return out
}

func flatten(spec chart.Spec) ([]string, []float64) {
	if len(spec.Series) == 0 {
		return nil, nil
	}
	if spec.Kind == chart.StackedBar && !spec.Multi() {
		labels := make([]string, 0, len(spec.Series))
		values := make([]float64, 0, len(spec.Series))
		for _, s := range spec.Series {
			if s.Len() == 0 {
				continue
			}
			labels = append(labels, s.Name)
			values = append(values, s.At(0))
		}
		return labels, values
	}
	s := spec.Series[0]
	values := make([]float64, s.Len())
	for i := range values {
		values[i] = s.At(i)
	}
	return spec.Labels, values
}

// Lines renders each triple on its own line
func Lines(triples []Triple) string {
	var b strings.Builder
	for _, t := range triples {
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Stats are descriptive statistics over a chart's values
type Stats struct {
	Total    float64 `json:"total"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	TopLabel string  `json:"topLabel"`
	TopShare float64 `json:"topShare"`
}

// Describe computes summary statistics over triples. An empty input is all zeros.
func Describe(triples []Triple) (Stats, error) {
	if len(triples) == 0 {
		return Stats{}, nil
	}
	data := make(stats.Float64Data, len(triples))
	for i, t := range triples {
		data[i] = t.Value
	}

	total, err := stats.Sum(data)
	if err != nil {
		return Stats{}, err
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return Stats{}, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return Stats{}, err
	}

	top := triples[0]
	for _, t := range triples[1:] {
		if t.Value > top.Value {
			top = t
		}
	}
	return Stats{Total: total, Mean: mean, Median: median, TopLabel: top.Label, TopShare: top.Percent}, nil
}
