// Package render draws chart specs as PNG images with go-chart.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"excelviz/domain/chart"
	"excelviz/domain/core"
	"excelviz/ports"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 480
)

// ErrNothingToDraw is returned for specs with no positive value
var ErrNothingToDraw = errors.New("chart has no data to draw")

// Renderer is a ports.ChartRenderer whose instances are PNG images. Images are
// drawn on first request and cached until the instance is destroyed.
type Renderer struct {
	mu      sync.Mutex
	width   int
	height  int
	entries map[string]*entry
}

type entry struct {
	spec chart.Spec
	png  []byte
}

// NewRenderer creates a renderer producing width x height images
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Renderer{width: width, height: height, entries: make(map[string]*entry)}
}

// Create registers spec under key. Specs that fail validation are rejected.
func (r *Renderer) Create(key string, spec chart.Spec) (ports.ChartInstance, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	e := &entry{spec: spec}

	r.mu.Lock()
	r.entries[key] = e
	r.mu.Unlock()
	return &instance{renderer: r, key: key, entry: e}, nil
}

// PNG returns the image for key
func (r *Renderer) PNG(key string) ([]byte, error) {
	r.mu.Lock()
	e, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return nil, core.NewUnknownSlotError(key)
	}

	r.mu.Lock()
	cached := e.png
	r.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var buf bytes.Buffer
	if err := Draw(&buf, e.spec, r.width, r.height); err != nil {
		return nil, fmt.Errorf("draw %s: %w", key, err)
	}

	r.mu.Lock()
	e.png = buf.Bytes()
	r.mu.Unlock()
	return buf.Bytes(), nil
}

// Len returns the number of live instances
func (r *Renderer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type instance struct {
	renderer *Renderer
	key      string
	entry    *entry
}

func (i *instance) Destroy() error {
	r := i.renderer
	r.mu.Lock()
	defer r.mu.Unlock()
	// A newer instance may already own the key
	if r.entries[i.key] == i.entry {
		delete(r.entries, i.key)
	}
	return nil
}

// Draw writes spec as a PNG image to w
func Draw(w io.Writer, spec chart.Spec, width, height int) error {
	if !hasData(spec) {
		return ErrNothingToDraw
	}
	title := ""
	if spec.Options != nil {
		title = spec.Options.Heading()
	}

	switch spec.Kind {
	case chart.Pie, chart.Doughnut:
		values := sliceValues(spec)
		if spec.Kind == chart.Doughnut {
			return gochart.DonutChart{Title: title, Width: width, Height: height, Values: values}.Render(gochart.PNG, w)
		}
		return gochart.PieChart{Title: title, Width: width, Height: height, Values: values}.Render(gochart.PNG, w)

	case chart.Bar, chart.HorizontalBar:
		if spec.Kind == chart.HorizontalBar {
			log.Printf("[Render] %s drawn with vertical bars", spec.Kind)
		}
		if len(spec.Series) > 1 {
			return stackedBars(spec, title, width, height).Render(gochart.PNG, w)
		}
		return gochart.BarChart{
			Title:    title,
			Width:    width,
			Height:   height,
			BarWidth: barWidth(width, len(spec.Labels)),
			Bars:     sliceValues(spec),
		}.Render(gochart.PNG, w)

	case chart.StackedBar:
		return stackedBars(spec, title, width, height).Render(gochart.PNG, w)

	default:
		return continuous(spec, title, width, height).Render(gochart.PNG, w)
	}
}

func hasData(spec chart.Spec) bool {
	for _, s := range spec.Series {
		for i := 0; i < s.Len(); i++ {
			if s.At(i) > 0 {
				return true
			}
		}
	}
	return false
}

// sliceValues turns the first series into one value per label
func sliceValues(spec chart.Spec) []gochart.Value {
	s := spec.Series[0]
	out := make([]gochart.Value, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		color := s.Color
		if i < len(s.Colors) {
			color = s.Colors[i]
		}
		label := ""
		if i < len(spec.Labels) {
			label = spec.Labels[i]
		}
		out = append(out, gochart.Value{
			Label: label,
			Value: s.At(i),
			Style: gochart.Style{FillColor: Color(color), StrokeColor: Color(color)},
		})
	}
	return out
}

// stackedBars draws one bar per label with a segment per series
func stackedBars(spec chart.Spec, title string, width, height int) gochart.StackedBarChart {
	bars := make([]gochart.StackedBar, len(spec.Labels))
	for i, label := range spec.Labels {
		bar := gochart.StackedBar{Name: label}
		for _, s := range spec.Series {
			if i >= s.Len() {
				continue
			}
			bar.Values = append(bar.Values, gochart.Value{
				Label: s.Name,
				Value: s.At(i),
				Style: gochart.Style{FillColor: Color(s.Color), StrokeColor: Color(s.Color)},
			})
		}
		bars[i] = bar
	}
	return gochart.StackedBarChart{Title: title, Width: width, Height: height, Bars: bars}
}

// continuous draws line, area, radar, scatter and bubble charts over an index axis
func continuous(spec chart.Spec, title string, width, height int) *gochart.Chart {
	ticks := make([]gochart.Tick, len(spec.Labels))
	for i, label := range spec.Labels {
		ticks[i] = gochart.Tick{Value: float64(i), Label: label}
	}

	series := make([]gochart.Series, 0, len(spec.Series))
	for _, s := range spec.Series {
		xs := make([]float64, s.Len())
		ys := make([]float64, s.Len())
		for i := range xs {
			xs[i] = float64(i)
			if s.Points != nil {
				xs[i] = s.Points[i].X
			}
			ys[i] = s.At(i)
		}
		if len(xs) == 1 {
			// go-chart needs a non-zero x range
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}
		series = append(series, gochart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style:   seriesStyle(spec.Kind, s),
		})
	}

	ch := &gochart.Chart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis:  gochart.XAxis{Ticks: ticks},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(ch)}
	return ch
}

func seriesStyle(kind chart.Kind, s chart.Series) gochart.Style {
	col := Color(s.Color)
	switch kind {
	case chart.Scatter:
		return gochart.Style{StrokeWidth: gochart.Disabled, DotWidth: 5, DotColor: col}
	case chart.Bubble:
		radii := make([]float64, len(s.Points))
		for i, p := range s.Points {
			if p.R != nil {
				radii[i] = *p.R
			}
		}
		return gochart.Style{
			StrokeWidth: gochart.Disabled,
			DotColor:    col.WithAlpha(160),
			DotWidthProvider: func(_, _ gochart.Range, index int, _, _ float64) float64 {
				if index < len(radii) {
					return radii[index]
				}
				return 0
			},
		}
	case chart.Area:
		fill := s.FillColor
		if fill == "" {
			fill = s.Color
		}
		return gochart.Style{StrokeColor: col, StrokeWidth: 2, FillColor: Color(fill).WithAlpha(64)}
	default:
		return gochart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 3}
	}
}

func barWidth(width, n int) int {
	if n == 0 {
		return 40
	}
	w := (width - 80) / (n * 2)
	if w < 8 {
		return 8
	}
	if w > 80 {
		return 80
	}
	return w
}

// Color parses #rgb, #rrggbb and #rrggbbaa. Malformed input yields the default teal.
func Color(hex string) drawing.Color {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 && len(h) != 8 {
		return defaultColor
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return defaultColor
	}
	if len(h) == 6 {
		v = v<<8 | 0xff
	}
	return drawing.Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

var defaultColor = drawing.Color{R: 0x4b, G: 0xc0, B: 0xc0, A: 0xff}
