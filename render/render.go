// Package render draws a VO2 Max series as a PNG chart: one colored dot per
// activity, grouped by category, over a trend line through every point.
package render

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	vo2trend "github.com/lucasjlepore/vo2-trend"
)

// ErrNothingToPlot is returned for a series without points.
var ErrNothingToPlot = errors.New("no VO2 Max values to plot")

const (
	defaultWidth  = 1200
	defaultHeight = 500

	singlePointSpan = 12 * time.Hour
	valuePadding    = 1.0
)

var palette = map[vo2trend.Color]drawing.Color{
	vo2trend.ColorBlue:   {R: 0x00, G: 0x00, B: 0xFF, A: 0xFF},
	vo2trend.ColorGreen:  {R: 0x00, G: 0x80, B: 0x00, A: 0xFF},
	vo2trend.ColorOrange: {R: 0xFF, G: 0xA5, B: 0x00, A: 0xFF},
	vo2trend.ColorRed:    {R: 0xFF, G: 0x00, B: 0x00, A: 0xFF},
	vo2trend.ColorGray:   {R: 0x80, G: 0x80, B: 0x80, A: 0xFF},
}

var trendColor = drawing.Color{R: 0x00, G: 0x00, B: 0x8B, A: 0xFF}

// Options sizes and titles the chart. Zero values take defaults.
type Options struct {
	Width  int
	Height int
	Title  string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Height <= 0 {
		o.Height = defaultHeight
	}
	if o.Title == "" {
		o.Title = "VO2 Max Progression by Activity Type"
	}
	return o
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    col,
	}
}

// RenderPNG writes the chart for series to w.
func RenderPNG(w io.Writer, series vo2trend.Series, opts Options) error {
	if series.Empty() {
		return ErrNothingToPlot
	}
	opts = opts.withDefaults()

	times := make([]time.Time, 0, len(series.Points))
	values := make([]float64, 0, len(series.Points))
	minY, maxY := series.Points[0].Value, series.Points[0].Value
	for _, p := range series.Points {
		times = append(times, p.Time)
		values = append(values, p.Value)
		minY = min(minY, p.Value)
		maxY = max(maxY, p.Value)
	}

	all := []chart.Series{chart.TimeSeries{
		Name:    "VO2 Max",
		XValues: times,
		YValues: values,
		Style:   chart.Style{StrokeColor: trendColor, StrokeWidth: 1.5},
	}}
	for _, g := range series.Groups() {
		xs := make([]time.Time, 0, len(g.Points))
		ys := make([]float64, 0, len(g.Points))
		for _, p := range g.Points {
			xs = append(xs, p.Time)
			ys = append(ys, p.Value)
		}
		all = append(all, chart.TimeSeries{
			Name:    string(g.Category),
			XValues: xs,
			YValues: ys,
			Style:   pointStyle(palette[g.Color]),
		})
	}

	// go-chart rejects a zero-width range, so a single instant is padded.
	first, last := times[0], times[len(times)-1]
	if !last.After(first) {
		first, last = first.Add(-singlePointSpan), last.Add(singlePointSpan)
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeDateValueFormatter,
			Range: &chart.ContinuousRange{
				Min: chart.TimeToFloat64(first),
				Max: chart.TimeToFloat64(last),
			},
		},
		YAxis: chart.YAxis{
			Name:  "VO2 Max",
			Range: &chart.ContinuousRange{Min: minY - valuePadding, Max: maxY + valuePadding},
		},
		Series: all,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// RenderFile writes the chart for series to path.
func RenderFile(path string, series vo2trend.Series, opts Options) error {
	if series.Empty() {
		return ErrNothingToPlot
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderPNG(f, series, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
