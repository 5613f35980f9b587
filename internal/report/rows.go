// Package report renders evaluation results as PNG plots, HTML charts and
// terminal summaries.
package report

import (
	"github.com/banshee-data/pointer.predict/internal/evaluate"
	"github.com/banshee-data/pointer.predict/internal/store"
)

// Row is one bar group in a comparison chart.
type Row struct {
	Label     string
	MeanError float64 // px
	P95Error  float64 // px
	Accuracy  float64 // [0, 1]
	Best      bool
}

// RowsFromComparison flattens c into chart rows in run order.
func RowsFromComparison(c *evaluate.Comparison) []Row {
	rows := make([]Row, 0, len(c.Runs))
	for _, r := range c.Runs {
		rows = append(rows, Row{
			Label:     r.Label,
			MeanError: r.MeanError,
			P95Error:  r.P95Error,
			Accuracy:  r.OverallAccuracy,
			Best:      r.Label == c.Best,
		})
	}
	return rows
}

// RowsFromRuns builds rows from stored runs, typically one comparison.
func RowsFromRuns(runs []store.RunRecord) []Row {
	rows := make([]Row, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, Row{
			Label:     r.Label,
			MeanError: r.MeanError,
			P95Error:  r.P95Error,
			Accuracy:  r.Accuracy,
			Best:      r.IsBest,
		})
	}
	return rows
}
