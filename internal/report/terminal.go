package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/banshee-data/pointer.predict/internal/evaluate"
	"github.com/banshee-data/pointer.predict/internal/store"
)

// TerminalReporter prints human-friendly evaluation output.
type TerminalReporter struct {
	mu       sync.Mutex
	out      io.Writer
	barOut   io.Writer
	progress *progressbar.ProgressBar

	cyan   *color.Color
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	bold   *color.Color
	faint  *color.Color
}

// NewTerminalReporter writes summaries to out and progress bars to barOut.
// A nil barOut disables progress bars.
func NewTerminalReporter(out, barOut io.Writer) *TerminalReporter {
	return &TerminalReporter{
		out:    out,
		barOut: barOut,
		cyan:   color.New(color.FgCyan, color.Bold),
		green:  color.New(color.FgGreen, color.Bold),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed, color.Bold),
		bold:   color.New(color.Bold),
		faint:  color.New(color.Faint),
	}
}

// Section prints an upper-case heading.
func (r *TerminalReporter) Section(title string) {
	fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, title)
}

// Label prints an aligned "label value" line.
func (r *TerminalReporter) Label(width int, label, value string) {
	fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(fmt.Sprintf("%-*s", width, label)), value)
}

// Warn prints a highlighted warning line.
func (r *TerminalReporter) Warn(format string, args ...any) {
	fmt.Fprintf(r.out, "  %s %s\n", r.yellow.Sprint("!"), fmt.Sprintf(format, args...))
}

// Error prints a highlighted error line.
func (r *TerminalReporter) Error(format string, args ...any) {
	fmt.Fprintf(r.out, "  %s %s\n", r.red.Sprint("x"), fmt.Sprintf(format, args...))
}

// StartProgress opens a progress bar of total steps, closing any open one.
func (r *TerminalReporter) StartProgress(description string, total int) {
	r.FinishProgress()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.barOut == nil {
		return
	}
	r.progress = progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetWriter(r.barOut),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Progress moves the open bar to done. It matches evaluate's progress
// callback signature.
func (r *TerminalReporter) Progress(done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress == nil {
		return
	}
	if done > total {
		done = total
	}
	_ = r.progress.Set(done)
}

// FinishProgress closes the open bar, if any.
func (r *TerminalReporter) FinishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
}

// Comparison prints one line per run with the best run highlighted.
func (r *TerminalReporter) Comparison(c *evaluate.Comparison) {
	r.Section(fmt.Sprintf("TRACE %s", c.Trace))
	fmt.Fprintf(r.out, "  %s\n", r.faint.Sprintf("%-18s %8s %8s %8s %9s %8s %9s",
		"run", "preds", "mean", "p95", "accuracy", "horizon", "us/sample"))
	for _, run := range c.Runs {
		line := fmt.Sprintf("%-18s %8d %8.2f %8.2f %8.1f%% %8.1f %9.2f",
			run.Label, run.VerifiedPredictions, run.MeanError, run.P95Error,
			run.OverallAccuracy*100, run.AverageHorizonMs, run.AvgProcessingUs)
		switch {
		case run.Label == c.Best:
			fmt.Fprintf(r.out, "  %s\n", r.green.Sprint(line))
		case run.VerifiedPredictions == 0:
			fmt.Fprintf(r.out, "  %s\n", r.faint.Sprint(line))
		default:
			fmt.Fprintf(r.out, "  %s\n", line)
		}
	}
	if c.Best == "" {
		r.Warn("no run produced a verifiable prediction")
		return
	}
	r.Label(6, "Best:", r.green.Sprint(c.Best))
}

// StoredRuns lists runs read back from the store.
func (r *TerminalReporter) StoredRuns(runs []store.RunRecord) {
	r.Section("RUNS")
	if len(runs) == 0 {
		fmt.Fprintf(r.out, "  %s\n", r.faint.Sprint("no stored runs"))
		return
	}
	for _, run := range runs {
		marker := " "
		if run.IsBest {
			marker = r.green.Sprint("*")
		}
		fmt.Fprintf(r.out, "  %s %s %-16s %-18s mean %7.2fpx  acc %5.1f%%  %s\n",
			marker, shortID(run.RunID), run.Trace, run.Label, run.MeanError, run.Accuracy*100,
			r.faint.Sprint(run.CreatedAt.Format("2006-01-02 15:04:05")))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
