package predict

import (
	"math"

	"github.com/banshee-data/pointer.predict/internal/monitoring"
)

// Prediction is an estimated future pointer position. It is never
// modified after the engine returns it.
type Prediction struct {
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Confidence  float64     `json:"confidence"`   // [0, 1]
	Algorithm   Algorithm   `json:"algorithm"`    // Model that produced X, Y
	HorizonMs   float64     `json:"horizon_ms"`   // How far past the newest sample
	Uncertainty Uncertainty `json:"uncertainty"`  // Per-axis error radius (px)
	Timestamp   float64     `json:"timestamp_ms"` // Instant the prediction targets
}

// EngineMetrics summarises prediction accuracy since construction or the
// last Reset.
type EngineMetrics struct {
	Algorithms          []AlgorithmMetrics `json:"algorithms"`
	CurrentAlgorithm    Algorithm          `json:"current_algorithm"`
	SampleCount         int                `json:"sample_count"`
	TotalPredictions    uint64             `json:"total_predictions"`
	VerifiedPredictions uint64             `json:"verified_predictions"`
	AccuratePredictions uint64             `json:"accurate_predictions"` // Error inside the declared uncertainty
	OverallAccuracy     float64            `json:"overall_accuracy"`     // Accurate / verified
	AverageHorizonMs    float64            `json:"average_horizon_ms"`
}

// Engine predicts one pointer stream. It is not safe for concurrent use.
type Engine struct {
	cfg     EngineConfig
	history *History
	kalman  *KalmanFilter
	scorer  *Scorer

	active    bool
	manual    Algorithm // Used when AutoSelect is off
	lastAuto  Algorithm // Last auto-selected algorithm, for switch logging
	current   *Prediction
	unchecked bool // current has not been verified yet

	totalPredictions    uint64
	verifiedPredictions uint64
	accuratePredictions uint64
	horizonSumMs        float64

	window []Sample // scratch for history reads
}

// NewEngine creates an inactive engine. It fails only when cfg is invalid.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		history:  NewHistory(cfg.MaxHistory),
		kalman:   NewKalmanFilter(cfg.ProcessNoise, cfg.MeasurementNoise, cfg.KalmanMode),
		scorer:   NewScorer(),
		manual:   cfg.DefaultAlgorithm,
		lastAuto: cfg.DefaultAlgorithm,
		window:   make([]Sample, 0, cfg.MaxHistory),
	}
	return e, nil
}

// Start enables push predictions from AddSample.
func (e *Engine) Start() { e.active = true }

// Stop disables push predictions. Samples are still tracked.
func (e *Engine) Stop() { e.active = false }

// IsActive reports whether AddSample produces predictions.
func (e *Engine) IsActive() bool { return e.active }

// Config returns the current configuration.
func (e *Engine) Config() EngineConfig { return e.cfg }

// SetConfig replaces the configuration wholesale. Call it between samples.
// History capacity shrinks by discarding the oldest samples; the Kalman
// estimate and accuracy metrics are kept.
func (e *Engine) SetConfig(cfg EngineConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.history.Resize(cfg.MaxHistory)
	if cap(e.window) < cfg.MaxHistory {
		e.window = make([]Sample, 0, cfg.MaxHistory)
	}
	e.kalman.SetNoise(cfg.ProcessNoise, cfg.MeasurementNoise)
	e.kalman.SetMode(cfg.KalmanMode)
	// A manual choice that was never overridden follows the new default.
	if e.manual == e.cfg.DefaultAlgorithm {
		e.manual = cfg.DefaultAlgorithm
	}
	e.cfg = cfg
	monitoring.Debugf("predict: config replaced (horizon %g-%gms, history %d, auto_select=%v, default=%s, kalman=%s)",
		cfg.BaseHorizonMs, cfg.MaxHorizonMs, cfg.MaxHistory, cfg.AutoSelect, cfg.DefaultAlgorithm, cfg.KalmanMode)
	return nil
}

// SetAlgorithm chooses the algorithm used while auto-selection is off.
func (e *Engine) SetAlgorithm(alg Algorithm) {
	if !alg.Valid() {
		return
	}
	e.manual = alg
}

// Algorithm returns the algorithm the next prediction will try first.
func (e *Engine) Algorithm() Algorithm {
	if e.cfg.AutoSelect {
		return e.scorer.Best(e.cfg.DefaultAlgorithm)
	}
	return e.manual
}

// Reset clears history, filter state, metrics and any pending prediction.
// The active state is kept.
func (e *Engine) Reset() {
	e.history.Clear()
	e.kalman.Reset()
	e.scorer.Reset()
	e.manual = e.cfg.DefaultAlgorithm
	e.lastAuto = e.cfg.DefaultAlgorithm
	e.current = nil
	e.unchecked = false
	e.totalPredictions = 0
	e.verifiedPredictions = 0
	e.accuratePredictions = 0
	e.horizonSumMs = 0
	monitoring.Debugf("predict: engine reset")
}

// AddSample records a position. Tracking state is always updated; while
// active and once enough samples are held, a prediction at the adaptive
// horizon is produced, stored and returned. Otherwise it returns nil.
func (e *Engine) AddSample(x, y, timestampMs float64, pressure *float64) *Prediction {
	s := Sample{X: x, Y: y, Timestamp: timestampMs}
	if pressure != nil {
		p := *pressure
		s.Pressure = &p
	}
	e.history.Add(s)
	e.kalman.Update(s)

	if !e.active || e.history.Len() < e.cfg.MinSamples {
		return nil
	}
	return e.predict(math.NaN())
}

// Predict produces a prediction on demand, active or not. A nil horizon
// uses the adaptive horizon; an explicit one is clamped to MaxHorizonMs.
// It returns nil with too few samples, when confidence falls below
// MinConfidence, or when no algorithm can answer.
func (e *Engine) Predict(horizonMs *float64) *Prediction {
	h := math.NaN()
	if horizonMs != nil {
		h = ClampHorizon(*horizonMs, e.cfg)
	}
	return e.predict(h)
}

// CurrentPrediction returns the most recently emitted prediction, or nil.
func (e *Engine) CurrentPrediction() *Prediction {
	return e.current
}

// predict runs one prediction; a NaN horizon selects the adaptive one.
func (e *Engine) predict(horizonMs float64) *Prediction {
	n := e.history.Len()
	if n < e.cfg.MinSamples || !e.kalman.Initialized() {
		return nil
	}
	if math.IsNaN(horizonMs) {
		vx, vy := e.kalman.Velocity()
		horizonMs = AdaptiveHorizon(vx, vy, e.cfg)
		if !finite(horizonMs) {
			horizonMs = e.cfg.BaseHorizonMs
		}
	}

	e.window = e.history.RecentInto(e.window, n)
	confidence := Confidence(e.window, horizonMs, e.cfg)
	if !finite(confidence) || confidence < e.cfg.MinConfidence {
		return nil
	}
	uncertainty := EstimateUncertainty(e.window, horizonMs)
	if !finite(uncertainty.X) || !finite(uncertainty.Y) {
		return nil
	}

	first := e.selectAlgorithm()
	used := Algorithm(-1)
	var px, py float64
	for _, alg := range e.scorer.Ranked(first) {
		x, y, ok := Extrapolate(alg, e.window, e.kalman, horizonMs)
		if ok && finite(x) && finite(y) {
			px, py, used = x, y, alg
			break
		}
	}
	if used < 0 {
		return nil
	}

	last := e.window[len(e.window)-1]
	p := &Prediction{
		X:           px,
		Y:           py,
		Confidence:  confidence,
		Algorithm:   used,
		HorizonMs:   horizonMs,
		Uncertainty: uncertainty,
		Timestamp:   last.Timestamp + horizonMs,
	}
	e.current = p
	e.unchecked = true
	e.totalPredictions++
	e.horizonSumMs += horizonMs
	return p
}

func (e *Engine) selectAlgorithm() Algorithm {
	if !e.cfg.AutoSelect {
		return e.manual
	}
	alg := e.scorer.Best(e.cfg.DefaultAlgorithm)
	if alg != e.lastAuto {
		m := e.scorer.Metrics(alg)
		monitoring.Debugf("predict: auto-select switched %s -> %s (accuracy %.3f over %d verifications)",
			e.lastAuto, alg, m.Accuracy, m.SampleCount)
		e.lastAuto = alg
	}
	return alg
}

// VerifyPrediction scores the pending prediction against the position
// actually observed at its target time. Without a pending prediction it
// does nothing. A non-finite error consumes the prediction without scoring
// it.
func (e *Engine) VerifyPrediction(actualX, actualY float64) {
	if e.current == nil || !e.unchecked {
		return
	}
	p := e.current
	e.unchecked = false

	err := math.Hypot(actualX-p.X, actualY-p.Y)
	if !finite(err) {
		return
	}
	e.scorer.Record(p.Algorithm, err)
	e.verifiedPredictions++
	if err < p.Uncertainty.X+p.Uncertainty.Y {
		e.accuratePredictions++
	}
}

// HasPending reports whether the last prediction still awaits verification.
func (e *Engine) HasPending() bool {
	return e.current != nil && e.unchecked
}

// SampleCount returns the number of samples currently held.
func (e *Engine) SampleCount() int {
	return e.history.Len()
}

// KalmanState returns the current filter estimate.
func (e *Engine) KalmanState() KalmanState {
	return e.kalman.State()
}

// Metrics returns a snapshot of accuracy statistics.
func (e *Engine) Metrics() EngineMetrics {
	m := EngineMetrics{
		Algorithms:          e.scorer.All(),
		CurrentAlgorithm:    e.Algorithm(),
		SampleCount:         e.history.Len(),
		TotalPredictions:    e.totalPredictions,
		VerifiedPredictions: e.verifiedPredictions,
		AccuratePredictions: e.accuratePredictions,
	}
	if e.verifiedPredictions > 0 {
		m.OverallAccuracy = float64(e.accuratePredictions) / float64(e.verifiedPredictions)
	}
	if e.totalPredictions > 0 {
		m.AverageHorizonMs = e.horizonSumMs / float64(e.totalPredictions)
	}
	return m
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
