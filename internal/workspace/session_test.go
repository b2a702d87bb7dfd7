package workspace

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"excelviz/domain/chart"
	"excelviz/domain/core"
	"excelviz/domain/dataset"
	"excelviz/internal/charting"
	"excelviz/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRenderer struct {
	mu   sync.Mutex
	live map[string]int
}

func newCountingRenderer() *countingRenderer {
	return &countingRenderer{live: make(map[string]int)}
}

func (r *countingRenderer) Create(key string, _ chart.Spec) (ports.ChartInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[key]++
	return &countedInstance{r: r, key: key}, nil
}

func (r *countingRenderer) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.live {
		n += c
	}
	return n
}

type countedInstance struct {
	r   *countingRenderer
	key string
}

func (i *countedInstance) Destroy() error {
	i.r.mu.Lock()
	defer i.r.mu.Unlock()
	i.r.live[i.key]--
	return nil
}

func ticketTable() *dataset.Table {
	rows := [][3]string{
		{"Open", "High", "Web"},
		{"Closed", "Low", "Web"},
		{"Open", "High", "Mail"},
		{"Open", "Low", "Phone"},
	}
	t := &dataset.Table{Source: "tickets.xlsx", Columns: []string{"Status", "Priority", "Channel"}}
	for _, r := range rows {
		t.Records = append(t.Records, dataset.Record{
			"Status":   dataset.TextCell(r[0]),
			"Priority": dataset.TextCell(r[1]),
			"Channel":  dataset.TextCell(r[2]),
		})
	}
	return t
}

func newTestSession(r ports.ChartRenderer) *Session {
	return NewSession(core.NewSessionID(), ticketTable(), r, Options{
		Theme: charting.ThemePastel,
		Rand:  rand.New(rand.NewSource(11)),
	})
}

func TestGenerateRequiresColumns(t *testing.T) {
	s := newTestSession(newCountingRenderer())

	v, err := s.Generate(nil)
	require.NoError(t, err)
	assert.False(t, v.OK)
	assert.Equal(t, "select at least one column to chart", v.Reason)

	_, err = s.Generate([]string{"Missing"})
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
}

func TestGenerateAndChangeKind(t *testing.T) {
	r := newCountingRenderer()
	s := newTestSession(r)

	v, err := s.Generate([]string{"Status", "Priority"})
	require.NoError(t, err)
	require.True(t, v.OK)

	slot := chart.SlotKey("Status")
	c, ok := s.Chart(slot)
	require.True(t, ok)
	assert.Equal(t, DefaultKind, c.Spec.Kind)

	require.NoError(t, s.SetKind(slot, chart.Pie))
	c, _ = s.Chart(slot)
	assert.Equal(t, []string{"Open", "Closed"}, c.Spec.Labels)
	assert.Equal(t, []float64{3, 1}, c.Spec.Series[0].Values)
	assert.Equal(t, 2, r.total())

	// generating an existing column keeps its chart
	_, err = s.Generate([]string{"Status"})
	require.NoError(t, err)
	c, _ = s.Chart(slot)
	assert.Equal(t, chart.Pie, c.Spec.Kind)

	assert.True(t, core.IsUnknownSlot(s.SetKind("chart-nope-canvas", chart.Bar)))
	assert.ErrorIs(t, s.SetKind(slot, chart.Kind("gauge")), core.ErrInvalidKind)
}

func TestFilterChangeRedrawsCharts(t *testing.T) {
	s := newTestSession(newCountingRenderer())
	_, err := s.Generate([]string{"Status"})
	require.NoError(t, err)

	v, err := s.RegisterFilters([]string{"Priority"})
	require.NoError(t, err)
	require.True(t, v.OK)

	require.NoError(t, s.SetInclusion("Priority", "Low", false))
	c, _ := s.Chart(chart.SlotKey("Status"))
	assert.Equal(t, []string{"Open"}, c.Spec.Labels)
	assert.Equal(t, []float64{2}, c.Spec.Series[0].Values)
	assert.Equal(t, "Active filters: Priority: 1/2 selected", s.FilterSummary())

	require.NoError(t, s.SetInclusion("Priority", "High", false))
	c, _ = s.Chart(chart.SlotKey("Status"))
	assert.Empty(t, c.Spec.Labels)

	// unregistered columns never filter
	require.NoError(t, s.SetInclusion("Channel", "Web", false))
	values, included, err := s.FilterValues("Priority")
	require.NoError(t, err)
	assert.Equal(t, []string{"High", "Low"}, values)
	assert.Empty(t, included)
}

func TestMultiPieLifecycle(t *testing.T) {
	r := newCountingRenderer()
	s := newTestSession(r)
	slot := chart.SlotKey("Status")
	_, err := s.Generate([]string{"Status"})
	require.NoError(t, err)
	require.NoError(t, s.SetKind(slot, chart.Doughnut))

	require.NoError(t, s.ToggleMulti(slot, true))
	assert.Equal(t, charting.ModeSingle, s.Mode(slot))

	v, err := s.SetMultiColumns(slot, nil)
	require.NoError(t, err)
	assert.False(t, v.OK)

	v, err = s.SetMultiColumns(slot, []string{"Status", "Priority", "Channel"})
	require.NoError(t, err)
	require.True(t, v.OK)
	assert.Equal(t, charting.ModeMulti, s.Mode(slot))
	assert.Equal(t, 3, s.LiveCount(slot))
	assert.Equal(t, 3, r.total())

	require.NoError(t, s.ToggleMulti(slot, false))
	assert.Equal(t, charting.ModeSingle, s.Mode(slot))
	assert.Equal(t, 1, s.LiveCount(slot))
	assert.Equal(t, 1, r.total())

	assert.True(t, s.RemoveChart(slot))
	assert.False(t, s.RemoveChart(slot))
	assert.Equal(t, 0, r.total())
	assert.Equal(t, charting.ModeEmpty, s.Mode(slot))
}

func TestColorsAndTheme(t *testing.T) {
	s := newTestSession(newCountingRenderer())
	slot := chart.SlotKey("Status")
	_, err := s.Generate([]string{"Status"})
	require.NoError(t, err)
	require.NoError(t, s.SetKind(slot, chart.Pie))

	require.NoError(t, s.SetColor("Status", "Closed", "#000000"))
	c, _ := s.Chart(slot)
	assert.Equal(t, "#000000", c.Spec.Series[0].Colors[1])

	require.NoError(t, s.SetKind(slot, chart.Line))
	require.NoError(t, s.SetBaseColor(slot, "#abcdef"))
	c, _ = s.Chart(slot)
	assert.Equal(t, "#abcdef", c.Spec.Series[0].Color)

	assert.Error(t, s.SetTheme("sepia"))
	require.NoError(t, s.SetTheme("dark"))
	assert.Equal(t, charting.ThemeDark, s.Theme())
	assert.True(t, core.IsUnknownSlot(s.SetBaseColor("chart-x-canvas", "#ffffff")))
}

func TestSnapshotAndRestoreIntoNewSession(t *testing.T) {
	src := newTestSession(newCountingRenderer())
	_, err := src.Generate([]string{"Status", "Priority"})
	require.NoError(t, err)
	_, err = src.RegisterFilters([]string{"Channel"})
	require.NoError(t, err)
	require.NoError(t, src.SetInclusion("Channel", "Phone", false))
	require.NoError(t, src.SetKind(chart.SlotKey("Status"), chart.StackedBar))
	require.NoError(t, src.SetKind(chart.SlotKey("Priority"), chart.Pie))
	_, err = src.SetMultiColumns(chart.SlotKey("Priority"), []string{"Priority", "Status"})
	require.NoError(t, err)
	require.NoError(t, src.SetTheme("neon"))
	require.NoError(t, src.SetColor("Status", "Open", "#111111"))

	saved, err := src.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "tickets.xlsx", saved.FileName)
	assert.Equal(t, []string{"Status", "Priority"}, saved.SelectedColumns)
	assert.Equal(t, "neon", saved.Theme)

	r := newCountingRenderer()
	dst := newTestSession(r)
	report, err := dst.Restore(context.Background(), saved)
	require.NoError(t, err)
	assert.Equal(t, []string{chart.SlotKey("Status"), chart.SlotKey("Priority")}, report.Rendered)

	assert.Equal(t, charting.ThemeNeon, dst.Theme())
	assert.Equal(t, "Active filters: Channel: 2/3 selected", dst.FilterSummary())

	for _, want := range src.Charts() {
		got, ok := dst.Chart(want.Slot)
		require.True(t, ok, want.Slot)
		assert.Equal(t, want.Spec.Kind, got.Spec.Kind)
		assert.Equal(t, want.Spec.Columns, got.Spec.Columns)
		assert.Equal(t, want.Spec.Labels, got.Spec.Labels)
		assert.Equal(t, len(want.Parts), len(got.Parts))
	}
	assert.Equal(t, charting.ModeMulti, dst.Mode(chart.SlotKey("Priority")))
	assert.Equal(t, 3, r.total(), "one stacked bar plus two pie parts")

	status, _ := dst.Chart(chart.SlotKey("Status"))
	assert.Equal(t, "#111111", status.Spec.Series[0].Color)
}

func TestRestoreDiscardsLiveFiltersAndColors(t *testing.T) {
	s := newTestSession(newCountingRenderer())
	_, err := s.Generate([]string{"Status"})
	require.NoError(t, err)
	saved, err := s.Snapshot()
	require.NoError(t, err)

	_, err = s.RegisterFilters([]string{"Priority"})
	require.NoError(t, err)
	require.NoError(t, s.SetInclusion("Priority", "High", false))
	require.NoError(t, s.SetColor("Status", "Closed", "#222222"))

	_, err = s.Restore(context.Background(), saved)
	require.NoError(t, err)

	c, ok := s.Chart(chart.SlotKey("Status"))
	require.True(t, ok)
	assert.Equal(t, []string{"Open", "Closed"}, c.Spec.Labels)
	assert.Equal(t, []float64{3, 1}, c.Spec.Series[0].Values)
	assert.Equal(t, "No filters applied", s.FilterSummary())

	again, err := s.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, again.ColorPreferences)
	assert.Empty(t, again.FilterableColumns)
}

func TestManagerOpenSharesParse(t *testing.T) {
	m := NewManager(ManagerConfig{TTL: time.Minute})
	var loads int32
	release := make(chan struct{})
	load := func(context.Context) (*dataset.Table, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return ticketTable(), nil
	}

	var wg sync.WaitGroup
	sessions := make([]*Session, 4)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Open(context.Background(), "upload-1", load)
			assert.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.Equal(t, 4, m.Len())
	got, err := m.Get(sessions[0].ID())
	require.NoError(t, err)
	assert.Same(t, sessions[0], got)
}

func TestManagerSweepAndClose(t *testing.T) {
	m := NewManager(ManagerConfig{TTL: time.Minute})
	s := m.Start(ticketTable())

	assert.Zero(t, m.Sweep(time.Now()))
	assert.Equal(t, 1, m.Sweep(time.Now().Add(2*time.Minute)))

	_, err := m.Get(s.ID())
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.True(t, core.IsNotFoundError(err))
	assert.False(t, m.Close(s.ID()))
}
