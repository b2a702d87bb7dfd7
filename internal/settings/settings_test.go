package settings_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"excelviz/domain/chart"
	"excelviz/domain/core"
	"excelviz/domain/dataset"
	"excelviz/internal/charting"
	"excelviz/internal/filter"
	"excelviz/internal/settings"
	"excelviz/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopInstance struct{}

func (nopInstance) Destroy() error { return nil }

type nopRenderer struct{}

func (nopRenderer) Create(string, chart.Spec) (ports.ChartInstance, error) {
	return nopInstance{}, nil
}

func records() []dataset.Record {
	rows := [][3]string{
		{"Open", "x", "High"},
		{"Closed", "y", "Low"},
		{"Open", "y", "High"},
		{"Open", "z", ""},
	}
	out := make([]dataset.Record, len(rows))
	for i, r := range rows {
		out[i] = dataset.Record{
			"Status":   dataset.TextCell(r[0]),
			"Group":    dataset.TextCell(r[1]),
			"Priority": dataset.TextCell(r[2]),
		}
	}
	return out
}

// replay rebuilds charts from a plan with a fresh builder and registry, and
// records the order in which slots were rebuilt.
type replay struct {
	records  []dataset.Record
	builder  *charting.Builder
	registry *charting.Registry
	filters  *filter.Engine
	calls    []string
	settled  bool
}

func newReplay(rs []dataset.Record) *replay {
	return &replay{
		records:  rs,
		builder:  charting.NewBuilder(charting.NewPalette(charting.ThemeDefault, rand.New(rand.NewSource(3))), nil),
		registry: charting.NewRegistry(nopRenderer{}),
		filters:  filter.NewEngine(rs),
	}
}

func (r *replay) Prepare(_ context.Context, p *settings.Plan) error {
	r.calls = append(r.calls, "prepare")
	if len(p.FilterColumns) > 0 {
		r.filters.Register(p.FilterColumns)
		r.filters.Restore(p.Filters)
	}
	return nil
}

func (r *replay) build(inst settings.Instruction) error {
	c, v := r.builder.Build(inst.Slot, inst.Kind, inst.Columns, r.filters.Apply(r.records))
	if err := v.Err(); err != nil {
		return err
	}
	return r.registry.Render(c)
}

func (r *replay) Single(_ context.Context, inst settings.Instruction) error {
	r.calls = append(r.calls, "single:"+inst.Slot)
	return r.build(inst)
}

func (r *replay) Multi(_ context.Context, inst settings.Instruction) error {
	if !r.settled {
		return errors.New("multi before settle")
	}
	r.calls = append(r.calls, "multi:"+inst.Slot)
	return r.build(inst)
}

func (r *replay) settler() settings.Settler {
	return settings.SettleFunc(func(context.Context) error {
		r.calls = append(r.calls, "settle")
		r.settled = true
		return nil
	})
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	src := newReplay(records())
	src.filters.Register([]string{"Priority"})
	src.filters.SetInclusion("Priority", "Low", false)

	for _, inst := range []settings.Instruction{
		{Slot: chart.SlotKey("Status"), Kind: chart.Pie, Columns: []string{"Status"}},
		{Slot: chart.SlotKey("Group"), Kind: chart.StackedBar, Columns: []string{"Group"}},
		{Slot: chart.SlotKey("Priority"), Kind: chart.Bar, Columns: []string{"Priority", "Group"}},
		{Slot: "chart-pies-canvas", Kind: chart.Doughnut, Columns: []string{"Status", "Group"}},
		{Slot: "chart-bubbles-canvas", Kind: chart.Bubble, Columns: []string{"Group"}},
	} {
		require.NoError(t, src.build(inst))
	}

	saved, err := settings.Snapshot(src.registry, src.filters, settings.View{FileName: "tickets.xlsx", Theme: "neon"})
	require.NoError(t, err)
	b, err := settings.Marshal(saved)
	require.NoError(t, err)

	loaded, err := settings.Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, settings.Version, loaded.Version)
	assert.Equal(t, "tickets.xlsx", loaded.FileName)
	require.Len(t, loaded.Charts, 5)

	plan, err := settings.Restore(loaded)
	require.NoError(t, err)
	assert.Len(t, plan.Singles, 3)
	assert.Len(t, plan.Multis, 2)
	assert.Equal(t, []string{"Status", "Group", "Priority"}, plan.Columns)

	dst := newReplay(records())
	report, err := plan.Execute(context.Background(), dst, dst.settler())
	require.NoError(t, err)
	assert.Len(t, report.Rendered, 5)

	for _, slot := range src.registry.Keys() {
		want, _ := src.registry.Get(slot)
		got, ok := dst.registry.Get(slot)
		require.True(t, ok, slot)
		assert.Equal(t, want.Spec.Kind, got.Spec.Kind, slot)
		assert.Equal(t, want.Spec.Columns, got.Spec.Columns, slot)
		assert.Equal(t, want.Spec.Labels, got.Spec.Labels, slot)
		require.Len(t, got.Spec.Series, len(want.Spec.Series), slot)
		for i := range want.Spec.Series {
			assert.Equal(t, want.Spec.Series[i].Values, got.Spec.Series[i].Values, slot)
			assert.Equal(t, len(want.Spec.Series[i].Points), len(got.Spec.Series[i].Points), slot)
		}
	}
	assert.Equal(t, "Active filters: Priority: 2/3 selected", dst.filters.Summary())
}

func TestExecuteRunsSinglesBeforeSettleBeforeMultis(t *testing.T) {
	plan := &settings.Plan{
		Singles: []settings.Instruction{{Slot: "a", Kind: chart.Bar, Columns: []string{"Status"}}},
		Multis:  []settings.Instruction{{Slot: "m", Kind: chart.Line, Columns: []string{"Status", "Group"}}},
	}
	r := newReplay(records())
	_, err := plan.Execute(context.Background(), r, r.settler())
	require.NoError(t, err)
	assert.Equal(t, []string{"prepare", "single:a", "settle", "multi:m"}, r.calls)
}

func TestSettleFailureAbandonsMultis(t *testing.T) {
	plan := &settings.Plan{
		Singles: []settings.Instruction{{Slot: "a", Kind: chart.Bar, Columns: []string{"Status"}}},
		Multis:  []settings.Instruction{{Slot: "m", Kind: chart.Line, Columns: []string{"Status", "Group"}}},
	}
	r := newReplay(records())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	report, err := plan.Execute(ctx, r, settings.NewCountdown(5))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"a"}, report.Rendered)
	assert.Equal(t, []string{"m"}, report.Failed)
	assert.NotContains(t, r.calls, "multi:m")
}

func TestExecuteContinuesPastFailedSlot(t *testing.T) {
	plan := &settings.Plan{Singles: []settings.Instruction{
		{Slot: "empty", Kind: chart.Bar},
		{Slot: "ok", Kind: chart.Bar, Columns: []string{"Status"}},
	}}
	r := newReplay(records())
	report, err := plan.Execute(context.Background(), r, nil)
	assert.True(t, core.IsEmptySelection(err))
	assert.Equal(t, []string{"ok"}, report.Rendered)
	assert.Equal(t, []string{"empty"}, report.Failed)
}

func TestCountdown(t *testing.T) {
	c := settings.NewCountdown(2)
	c.Mark()
	select {
	case <-c.Done():
		t.Fatal("settled early")
	default:
	}
	c.Mark()
	c.Mark()
	assert.NoError(t, c.Settle(context.Background()))
	assert.NoError(t, settings.NewCountdown(0).Settle(context.Background()))
}

func TestLegacyDocument(t *testing.T) {
	doc := `{
		"fileName": "old.xlsx",
		"charts": [
			{"chartId": "chart-Status-canvas", "type": "pie", "dataLabels": ["Open","Closed"],
			 "dataset": [{"label": "Status", "data": [3, 1], "backgroundColor": ["#AEC6CF", "#FFB347"]}]},
			{"chartId": "chart-Group-canvas", "type": "stacked", "dataLabels": ["Total"],
			 "dataset": [{"label": "x", "data": [1]}, {"label": "y", "data": [2]}], "baseColumn": "Group"},
			{"chartId": "chart-Priority-canvas", "type": "bar", "dataLabels": ["High","Low","x"],
			 "dataset": [{"label": "Priority", "data": [2,1,0]}, {"label": "Group", "data": [0,0,1]}]},
			{"chartId": "chart-Bad-canvas", "type": "gauge", "dataset": [{"label": "Bad", "data": []}]},
			{"chartId": "chart-Pts-canvas", "type": "scatter", "dataLabels": ["a"],
			 "dataset": [{"label": "Pts", "data": [{"x": 0, "y": 4}]}]}
		]
	}`
	s, err := settings.Unmarshal([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, settings.Version, s.Version)
	assert.Equal(t, []chart.Point{{X: 0, Y: 4}}, s.Charts[4].Dataset[0].Data.Points)

	plan, err := settings.Restore(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"chart-Bad-canvas"}, plan.Skipped)
	require.Len(t, plan.Singles, 3)
	assert.Equal(t, chart.StackedBar, plan.Singles[1].Kind)
	assert.Equal(t, []string{"Group"}, plan.Singles[1].Columns)
	require.Len(t, plan.Multis, 1)
	assert.Equal(t, []string{"Priority", "Group"}, plan.Multis[0].Columns)
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	_, err := settings.Unmarshal([]byte(`{"charts": [`))
	assert.ErrorIs(t, err, core.ErrInvalidSettings)

	_, err = settings.Restore(nil)
	assert.ErrorIs(t, err, core.ErrInvalidSettings)
}

func TestDataEncoding(t *testing.T) {
	b, err := settings.Data{}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	var d settings.Data
	require.NoError(t, d.UnmarshalJSON([]byte(`[1, null, 2.5]`)))
	assert.Equal(t, []float64{1, 0, 2.5}, d.Values)
}
