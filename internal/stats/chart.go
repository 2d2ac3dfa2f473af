package stats

import (
	"bytes"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Render draws one bar per group (height = percentage, annotated with the
// record count) and lists the totals in the legend. The PNG is encoded in
// memory.
func Render(r *Result) ([]byte, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Percentage of shows in the database against %s", r.By)
	p.X.Label.Text = string(r.By)
	p.Y.Label.Text = "Percentage %"
	p.Y.Min, p.Y.Max = 0, 105
	p.Legend.Top = true

	if len(r.Groups) > 0 {
		heights := make(plotter.Values, len(r.Groups))
		names := make([]string, len(r.Groups))
		points := make(plotter.XYs, len(r.Groups))
		counts := make([]string, len(r.Groups))
		for i, g := range r.Groups {
			heights[i] = float64(g.Percent)
			names[i] = g.Value
			points[i].X = float64(i)
			points[i].Y = math.Min(float64(g.Percent)+1, 101)
			counts[i] = fmt.Sprint(g.Count)
		}

		bars, err := plotter.NewBarChart(heights, vg.Points(24))
		if err != nil {
			return nil, fmt.Errorf("bar chart: %w", err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(0)
		p.Add(bars)
		p.Legend.Add(fmt.Sprintf("%s (with number of occurrences)", r.By), bars)

		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: points, Labels: counts})
		if err != nil {
			return nil, fmt.Errorf("bar labels: %w", err)
		}
		p.Add(labels)
		p.NominalX(names...)
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	} else {
		p.X.Min, p.X.Max = 0, 1
	}
	p.Legend.Add(fmt.Sprintf("Total number of shows: %d", r.Total))
	p.Legend.Add(fmt.Sprintf("Recently updated shows: %d", r.RecentlyUpdated))

	w, err := p.WriterTo(10*vg.Inch, 7*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("chart writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}
