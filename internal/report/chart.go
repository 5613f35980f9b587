package report

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ChartOptions tweaks the HTML page.
type ChartOptions struct {
	Title    string
	Subtitle string
	// AssetsHost overrides where echarts.js is loaded from; empty uses the
	// go-echarts default CDN.
	AssetsHost string
}

// RenderComparison writes a standalone HTML page with an error bar chart
// and an accuracy bar chart for rows.
func RenderComparison(w io.Writer, rows []Row, o ChartOptions) error {
	labels := make([]string, len(rows))
	mean := make([]opts.BarData, len(rows))
	p95 := make([]opts.BarData, len(rows))
	accuracy := make([]opts.BarData, len(rows))
	for i, r := range rows {
		labels[i] = r.Label
		mean[i] = opts.BarData{Value: round2(r.MeanError)}
		p95[i] = opts.BarData{Value: round2(r.P95Error)}
		accuracy[i] = opts.BarData{Value: round2(r.Accuracy * 100)}
		if r.Best {
			mean[i].ItemStyle = &opts.ItemStyle{Color: "#2ca02c"}
		}
	}

	initOpts := opts.Initialization{PageTitle: o.Title, Width: "100%", Height: "480px"}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}

	errBar := charts.NewBar()
	errBar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Error (px)"}),
	)
	errBar.SetXAxis(labels).
		AddSeries("mean", mean).
		AddSeries("p95", p95).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))

	accBar := charts.NewBar()
	accBar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: "Predictions inside uncertainty"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%", Min: 0, Max: 100}),
	)
	accBar.SetXAxis(labels).
		AddSeries("accuracy", accuracy,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.SetPageTitle(o.Title)
	page.AddCharts(errBar, accBar)
	return page.Render(w)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
