package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointer.predict/internal/evaluate"
	"github.com/banshee-data/pointer.predict/internal/store"
)

func sampleComparison() *evaluate.Comparison {
	return &evaluate.Comparison{
		Trace: "circle",
		Best:  "linear",
		Runs: []*evaluate.Result{
			{Label: "linear", VerifiedPredictions: 40, MeanError: 2.5, P95Error: 6, OverallAccuracy: 0.9, Errors: []float64{1, 2, 3, 4}},
			{Label: "quadratic", VerifiedPredictions: 40, MeanError: 4.25, P95Error: 11, OverallAccuracy: 0.7, Errors: []float64{3, 5, 4}},
			{Label: "auto", VerifiedPredictions: 0},
		},
	}
}

func TestRowsFromComparison(t *testing.T) {
	t.Parallel()

	got := RowsFromComparison(sampleComparison())
	want := []Row{
		{Label: "linear", MeanError: 2.5, P95Error: 6, Accuracy: 0.9, Best: true},
		{Label: "quadratic", MeanError: 4.25, P95Error: 11, Accuracy: 0.7},
		{Label: "auto"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRowsFromRuns(t *testing.T) {
	t.Parallel()

	got := RowsFromRuns([]store.RunRecord{
		{Label: "kalman", MeanError: 3, P95Error: 7, Accuracy: 0.5, IsBest: true},
		{Label: "spline", MeanError: 9},
	})
	require.Len(t, got, 2)
	assert.Equal(t, Row{Label: "kalman", MeanError: 3, P95Error: 7, Accuracy: 0.5, Best: true}, got[0])
	assert.False(t, got[1].Best)
}

func TestWriteErrorPlot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "errors.png")
	require.NoError(t, WriteErrorPlot(path, "circle", RowsFromComparison(sampleComparison())))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, WriteErrorPlot(path, "empty", nil))
}

func TestWriteErrorTimeline(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "timeline.png")
	require.NoError(t, WriteErrorTimeline(path, sampleComparison()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	empty := &evaluate.Comparison{Trace: "x", Runs: []*evaluate.Result{{Label: "auto"}}}
	assert.Error(t, WriteErrorTimeline(path, empty))
}

func TestRenderComparison(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := RenderComparison(&buf, RowsFromComparison(sampleComparison()), ChartOptions{
		Title:    "Prediction error",
		Subtitle: "circle",
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Prediction error")
	for _, label := range []string{"linear", "quadratic", "auto"} {
		assert.Contains(t, html, label)
	}
	assert.Contains(t, html, "#2ca02c", "best run should be highlighted")
}

func TestRound2(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1.23, round2(1.2345))
	assert.Equal(t, 0.0, round2(0))
	assert.Equal(t, 2.5, round2(2.5))
}

func TestTerminalReporterComparison(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := NewTerminalReporter(&out, nil)
	r.Comparison(sampleComparison())

	text := out.String()
	assert.Contains(t, text, "TRACE circle")
	assert.Contains(t, text, "quadratic")
	assert.Contains(t, text, "90.0%")
	assert.Contains(t, text, "Best:")
	assert.Equal(t, 1, strings.Count(text, "auto"))
}

func TestTerminalReporterNoBest(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := NewTerminalReporter(&out, nil)
	r.Comparison(&evaluate.Comparison{Trace: "stall", Runs: []*evaluate.Result{{Label: "auto"}}})

	assert.Contains(t, out.String(), "no run produced a verifiable prediction")
}

func TestTerminalReporterProgress(t *testing.T) {
	t.Parallel()

	var out, bar bytes.Buffer
	r := NewTerminalReporter(&out, &bar)
	r.StartProgress("replaying", 10)
	for i := 1; i <= 12; i++ {
		r.Progress(i, 10)
	}
	r.FinishProgress()
	assert.NotEmpty(t, bar.String())

	// Without a bar writer progress calls are no-ops.
	quiet := NewTerminalReporter(&out, nil)
	quiet.StartProgress("replaying", 10)
	quiet.Progress(5, 10)
	quiet.FinishProgress()
}

func TestTerminalReporterStoredRuns(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := NewTerminalReporter(&out, nil)
	r.StoredRuns(nil)
	assert.Contains(t, out.String(), "no stored runs")

	out.Reset()
	r.StoredRuns([]store.RunRecord{{
		RunID:     "0123456789abcdef",
		Trace:     "line",
		Label:     "linear",
		IsBest:    true,
		MeanError: 1.5,
		Accuracy:  1,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}})
	text := out.String()
	assert.Contains(t, text, "01234567 ")
	assert.NotContains(t, text, "0123456789")
	assert.Contains(t, text, "2026-01-02 03:04:05")
	assert.Contains(t, text, "100.0%")
}

func TestShortID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "abcdefgh", shortID("abcdefghij"))
}
