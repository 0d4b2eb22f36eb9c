// Package chart renders normalized records as PNG bar and line charts.
// Pie views are served as share data instead of images.
package chart

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"wastedash/domain/core"
	"wastedash/domain/waste"
	"wastedash/internal/pipeline"
)

// Kind is a chart representation
type Kind string

const (
	KindBar  Kind = "bar"
	KindLine Kind = "line"
	KindPie  Kind = "pie"
)

// ParseKind accepts the English names and the Korean selector labels
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bar", "막대그래프":
		return KindBar, nil
	case "line", "선그래프":
		return KindLine, nil
	case "pie", "파이차트":
		return KindPie, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnsupportedChart, s)
}

// Options controls titles and image size
type Options struct {
	Title  string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 12 * vg.Inch
	}
	if h <= 0 {
		h = 6 * vg.Inch
	}
	return w, h
}

// Render draws records as a PNG. Records with metrics become stacked bars per
// category for a single year, the latest one present, which is appended to
// the title; records without metrics become bars or lines per category across
// years. Null values are not drawn. Korean labels need a Hangul font, see
// UseFont.
func Render(kind Kind, records []waste.NormalizedRecord, opts Options) ([]byte, error) {
	p := plot.New()
	p.Title.Text = opts.Title
	p.Y.Label.Text = opts.YLabel
	p.Legend.Top = true

	valued := make([]waste.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if r.HasValue() {
			valued = append(valued, r)
		}
	}
	if len(valued) == 0 {
		p.Title.Text = strings.TrimSpace(opts.Title + " (no data)")
	} else if kind == KindBar && hasMetric(valued) {
		var year int
		valued, year = latestYearOnly(valued)
		p.Title.Text = strings.TrimSpace(fmt.Sprintf("%s (%d)", opts.Title, year))
	}

	var err error
	switch kind {
	case KindBar:
		err = drawBars(p, valued)
	case KindLine:
		err = drawLines(p, valued)
	default:
		return nil, fmt.Errorf("%w: %q cannot be rendered as an image", core.ErrUnsupportedChart, kind)
	}
	if err != nil {
		return nil, err
	}

	w, h := opts.size()
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

// grid sums values into rows x series cells keyed in first-seen order
type grid struct {
	rows   []string
	series []string
	cells  map[[2]string]float64
}

func buildGrid(records []waste.NormalizedRecord, rowKey, seriesKey func(waste.NormalizedRecord) string) grid {
	g := grid{cells: make(map[[2]string]float64)}
	seenRow, seenSeries := map[string]bool{}, map[string]bool{}
	for _, r := range records {
		rk, sk := rowKey(r), seriesKey(r)
		if !seenRow[rk] {
			seenRow[rk] = true
			g.rows = append(g.rows, rk)
		}
		if !seenSeries[sk] {
			seenSeries[sk] = true
			g.series = append(g.series, sk)
		}
		g.cells[[2]string{rk, sk}] += *r.Value
	}
	return g
}

func hasMetric(records []waste.NormalizedRecord) bool {
	for _, r := range records {
		if r.Metric != nil {
			return true
		}
	}
	return false
}

// latestYearOnly keeps the records of the most recent year; a stacked bar
// holds one year's metrics
func latestYearOnly(records []waste.NormalizedRecord) ([]waste.NormalizedRecord, int) {
	year, ok := pipeline.LatestYear(records)
	if !ok {
		return records, 0
	}
	out := make([]waste.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out, year
}

func yearKey(r waste.NormalizedRecord) string { return strconv.Itoa(r.Year) }
func categoryKey(r waste.NormalizedRecord) string { return r.Category }
func metricKey(r waste.NormalizedRecord) string { return r.MetricLabel() }

func drawBars(p *plot.Plot, records []waste.NormalizedRecord) error {
	if len(records) == 0 {
		return nil
	}

	stacked := hasMetric(records)
	var g grid
	if stacked {
		g = buildGrid(records, categoryKey, metricKey)
	} else {
		sorted := append([]waste.NormalizedRecord(nil), records...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })
		g = buildGrid(sorted, yearKey, categoryKey)
	}

	width := vg.Points(48)
	if !stacked {
		width = vg.Points(48 / float64(len(g.series)))
		if width < vg.Points(4) {
			width = vg.Points(4)
		}
	}

	var below *plotter.BarChart
	for i, s := range g.series {
		values := make(plotter.Values, len(g.rows))
		for j, row := range g.rows {
			values[j] = g.cells[[2]string{row, s}]
		}
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return fmt.Errorf("failed to build bars for %s: %w", s, err)
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = 0
		if stacked {
			if below != nil {
				bars.StackOn(below)
			}
			below = bars
		} else {
			bars.Offset = width * vg.Length(float64(i)-float64(len(g.series)-1)/2)
		}
		p.Add(bars)
		p.Legend.Add(s, bars)
	}
	p.NominalX(g.rows...)
	return nil
}

func drawLines(p *plot.Plot, records []waste.NormalizedRecord) error {
	if len(records) == 0 {
		return nil
	}

	seriesKey := categoryKey
	if hasMetric(records) {
		seriesKey = func(r waste.NormalizedRecord) string { return r.Category + " " + r.MetricLabel() }
	}
	g := buildGrid(records, yearKey, seriesKey)
	sort.Slice(g.rows, func(i, j int) bool {
		a, _ := strconv.Atoi(g.rows[i])
		b, _ := strconv.Atoi(g.rows[j])
		return a < b
	})

	ticks := make([]plot.Tick, len(g.rows))
	for i, row := range g.rows {
		y, _ := strconv.Atoi(row)
		ticks[i] = plot.Tick{Value: float64(y), Label: row}
	}

	for i, s := range g.series {
		var xys plotter.XYs
		for _, row := range g.rows {
			v, ok := g.cells[[2]string{row, s}]
			if !ok {
				continue
			}
			y, _ := strconv.Atoi(row)
			xys = append(xys, plotter.XY{X: float64(y), Y: v})
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("failed to build line for %s: %w", s, err)
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(s, line, points)
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.X.Label.Text = "year"
	return nil
}
