package workspace

import (
	"excelviz/domain/chart"
	"excelviz/domain/core"
	"excelviz/internal/export"
)

// Overview is the summary of one drawn chart, or of one part of a split chart
type Overview struct {
	Key     string          `json:"key"`
	Heading string          `json:"heading"`
	Lines   []export.Triple `json:"lines"`
}

// Export returns a slot's chart with its overview. Split charts get one
// overview per part, keyed like their renderer instances.
func (s *Session) Export(slot string) (chart.Chart, []Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.registry.Get(slot)
	if !ok {
		return chart.Chart{}, nil, core.NewUnknownSlotError(slot)
	}
	if !c.Split() {
		return c, []Overview{overviewOf(slot, c.Spec)}, nil
	}
	out := make([]Overview, len(c.Parts))
	for i, part := range c.Parts {
		out[i] = overviewOf(chart.PartKey(slot, i), part)
	}
	return c, out, nil
}

// Report renders every chart of the session as a markdown report
func (s *Session) Report() string {
	charts := s.Charts()
	s.mu.Lock()
	title, summary := s.table.Source, s.filters.Summary()
	s.mu.Unlock()
	if title == "" {
		title = "Chart report"
	}
	return export.Report(title, summary, charts)
}

func overviewOf(key string, spec chart.Spec) Overview {
	o := Overview{Key: key, Lines: export.Summarize(spec)}
	if spec.Options != nil {
		o.Heading = spec.Options.Heading()
	}
	return o
}
