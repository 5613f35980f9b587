// Package evaluate replays recorded traces through prediction engines and
// measures how far each prediction lands from where the pointer really went.
package evaluate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pointer.predict/internal/predict"
	"github.com/banshee-data/pointer.predict/internal/trace"
)

// LabelAuto names the run that lets the engine choose its algorithm.
const LabelAuto = "auto"

// Options tunes a single replay.
type Options struct {
	// Label identifies the run in comparisons. Defaults to the default
	// algorithm name, or LabelAuto when auto-selection is on.
	Label string
	// Progress, when set, is called after every replayed sample.
	Progress func(done, total int)
}

// Result summarises one replay of one trace.
type Result struct {
	Trace  string               `json:"trace"`
	Label  string               `json:"label"`
	Config predict.EngineConfig `json:"config"`

	Samples             int     `json:"samples"`
	Predictions         uint64  `json:"predictions"`          // Emitted by the engine
	VerifiedPredictions uint64  `json:"verified_predictions"` // Target time fell inside the trace
	AccuratePredictions uint64  `json:"accurate_predictions"` // Error inside the declared uncertainty
	OverallAccuracy     float64 `json:"overall_accuracy"`
	MeanError           float64 `json:"mean_error"` // px
	P95Error            float64 `json:"p95_error"`  // px
	MaxError            float64 `json:"max_error"`  // px
	AverageHorizonMs    float64 `json:"average_horizon_ms"`
	AverageConfidence   float64 `json:"average_confidence"`

	Algorithms []predict.AlgorithmMetrics `json:"algorithms"`

	ProcessingTime  time.Duration `json:"processing_time_ns"`
	AvgProcessingUs float64       `json:"avg_processing_us"` // Per sample

	// Errors holds the per-prediction error in emission order.
	Errors []float64 `json:"-"`
}

// Comparison holds one run per algorithm plus an auto-select run, all
// over the same trace.
type Comparison struct {
	Trace string    `json:"trace"`
	Runs  []*Result `json:"runs"`
	Best  string    `json:"best"` // Label with the lowest mean error
}

// Run replays tr into a fresh, started engine. Every emitted prediction is
// verified straight away against the trace position at its target time,
// which the replay can read ahead of the engine. Predictions aimed past
// the end of the trace stay unverified.
func Run(tr *trace.Trace, cfg predict.EngineConfig, opts Options) (*Result, error) {
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("trace %q: %w", tr.Name, err)
	}
	engine, err := predict.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	engine.Start()

	label := opts.Label
	if label == "" {
		label = cfg.DefaultAlgorithm.String()
		if cfg.AutoSelect {
			label = LabelAuto
		}
	}
	res := &Result{
		Trace:   tr.Name,
		Label:   label,
		Config:  cfg,
		Samples: len(tr.Samples),
	}

	var confidenceSum float64
	total := len(tr.Samples)
	start := time.Now()
	for i, s := range tr.Samples {
		p := engine.AddSample(s.X, s.Y, s.Timestamp, s.Pressure)
		if p != nil {
			confidenceSum += p.Confidence
			if x, y, ok := tr.PositionAt(p.Timestamp); ok {
				engine.VerifyPrediction(x, y)
				res.Errors = append(res.Errors, math.Hypot(x-p.X, y-p.Y))
			}
		}
		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}
	res.ProcessingTime = time.Since(start)
	res.AvgProcessingUs = float64(res.ProcessingTime.Microseconds()) / float64(total)

	m := engine.Metrics()
	res.Predictions = m.TotalPredictions
	res.VerifiedPredictions = m.VerifiedPredictions
	res.AccuratePredictions = m.AccuratePredictions
	res.OverallAccuracy = m.OverallAccuracy
	res.AverageHorizonMs = m.AverageHorizonMs
	res.Algorithms = m.Algorithms
	if res.Predictions > 0 {
		res.AverageConfidence = confidenceSum / float64(res.Predictions)
	}
	res.MeanError, res.P95Error, res.MaxError = summarise(res.Errors)
	return res, nil
}

func summarise(errs []float64) (mean, p95, worst float64) {
	if len(errs) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), errs...)
	sort.Float64s(sorted)
	return stat.Mean(sorted, nil), stat.Quantile(0.95, stat.Empirical, sorted, nil), sorted[len(sorted)-1]
}

// Compare runs tr once per algorithm with auto-selection off, then once
// with auto-selection on. cfg supplies every other parameter.
func Compare(tr *trace.Trace, cfg predict.EngineConfig, progress func(done, total int)) (*Comparison, error) {
	out := &Comparison{Trace: tr.Name}

	runs := len(predict.Algorithms) + 1
	step := func(run int) func(int, int) {
		if progress == nil {
			return nil
		}
		return func(done, total int) { progress(run*total+done, runs*total) }
	}

	for i, alg := range predict.Algorithms {
		c := cfg
		c.AutoSelect = false
		c.DefaultAlgorithm = alg
		res, err := Run(tr, c, Options{Label: alg.String(), Progress: step(i)})
		if err != nil {
			return nil, fmt.Errorf("%s run: %w", alg, err)
		}
		out.Runs = append(out.Runs, res)
	}

	c := cfg
	c.AutoSelect = true
	res, err := Run(tr, c, Options{Label: LabelAuto, Progress: step(runs - 1)})
	if err != nil {
		return nil, fmt.Errorf("auto run: %w", err)
	}
	out.Runs = append(out.Runs, res)

	out.Best = bestLabel(out.Runs)
	return out, nil
}

// Single wraps one run as a comparison so it can be reported and plotted
// like a full one. Best is the run's label when it verified anything.
func Single(r *Result) *Comparison {
	runs := []*Result{r}
	return &Comparison{Trace: r.Trace, Runs: runs, Best: bestLabel(runs)}
}

// bestLabel picks the verified run with the lowest mean error. Earlier
// runs win ties.
func bestLabel(runs []*Result) string {
	best := ""
	bestErr := math.Inf(1)
	for _, r := range runs {
		if r.VerifiedPredictions == 0 {
			continue
		}
		if r.MeanError < bestErr {
			best, bestErr = r.Label, r.MeanError
		}
	}
	return best
}

// Run returns the run labelled label, or nil.
func (c *Comparison) Run(label string) *Result {
	for _, r := range c.Runs {
		if r.Label == label {
			return r
		}
	}
	return nil
}
