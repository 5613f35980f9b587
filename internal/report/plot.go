package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pointer.predict/internal/evaluate"
)

var (
	meanColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p95Color  = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// WriteErrorPlot saves a grouped bar chart of mean and p95 error per run.
// The image format follows the path's extension.
func WriteErrorPlot(path, title string, rows []Row) error {
	if len(rows) == 0 {
		return fmt.Errorf("no runs to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Error (px)"
	p.Legend.Top = true
	p.Legend.Left = false

	mean := make(plotter.Values, len(rows))
	p95 := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, r := range rows {
		mean[i] = r.MeanError
		p95[i] = r.P95Error
		labels[i] = r.Label
		if r.Best {
			labels[i] += " *"
		}
	}

	width := vg.Points(18)
	meanBars, err := plotter.NewBarChart(mean, width)
	if err != nil {
		return fmt.Errorf("mean bars: %w", err)
	}
	meanBars.Color = meanColor
	meanBars.LineStyle.Width = vg.Length(0)
	meanBars.Offset = -width / 2

	p95Bars, err := plotter.NewBarChart(p95, width)
	if err != nil {
		return fmt.Errorf("p95 bars: %w", err)
	}
	p95Bars.Color = p95Color
	p95Bars.LineStyle.Width = vg.Length(0)
	p95Bars.Offset = width / 2

	p.Add(meanBars, p95Bars)
	p.Legend.Add("mean", meanBars)
	p.Legend.Add("p95", p95Bars)
	p.NominalX(labels...)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// WriteErrorTimeline saves a line plot of every run's per-prediction
// error in emission order.
func WriteErrorTimeline(path string, c *evaluate.Comparison) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - prediction error", c.Trace)
	p.X.Label.Text = "Verified prediction"
	p.Y.Label.Text = "Error (px)"
	p.Legend.Top = true
	p.Legend.Left = false

	var lines []interface{}
	for _, r := range c.Runs {
		if len(r.Errors) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(r.Errors))
		for i, e := range r.Errors {
			pts[i] = plotter.XY{X: float64(i), Y: e}
		}
		lines = append(lines, r.Label, pts)
	}
	if len(lines) == 0 {
		return fmt.Errorf("no verified predictions to plot")
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return fmt.Errorf("failed to add lines: %w", err)
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
