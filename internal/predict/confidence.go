package predict

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Uncertainty is a per-axis positional error radius in px.
type Uncertainty struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

const (
	// fullConfidenceSamples is the history length at which the sample-count
	// factor saturates.
	fullConfidenceSamples = 10
	// uncertaintyFloor is added to every computed uncertainty radius.
	uncertaintyFloor = 5.0
	// defaultUncertainty applies when there are too few samples for a
	// velocity variance.
	defaultUncertainty = 10.0

	minUncertaintySamples = 3
)

// Confidence scores how far a prediction horizonMs ahead can be trusted,
// in [0, 1]. It is the product of a sample-count factor, a direction
// consistency factor and a horizon penalty; histories shorter than
// cfg.MinSamples score exactly zero.
func Confidence(samples []Sample, horizonMs float64, cfg EngineConfig) float64 {
	n := len(samples)
	if n < cfg.MinSamples || n == 0 {
		return 0
	}
	countFactor := clamp01(float64(n) / fullConfidenceSamples)
	directionFactor := clamp01(directionConsistency(samples))
	horizonFactor := clamp01(horizonPenalty(horizonMs, cfg.MaxHorizonMs))
	return clamp01(countFactor * directionFactor * horizonFactor)
}

// horizonPenalty falls linearly from 1 at zero horizon to 0.5 at the
// maximum horizon and stays there beyond it.
func horizonPenalty(horizonMs, maxHorizonMs float64) float64 {
	if maxHorizonMs <= 0 {
		return 0.5
	}
	return 0.5 + 0.5*math.Max(0, 1-horizonMs/maxHorizonMs)
}

// directionConsistency is the fraction of consecutive interval velocities
// whose x and y components keep their sign. A zero component is treated
// as agreeing with either sign. Fewer than two velocities score 1.
func directionConsistency(samples []Sample) float64 {
	var prevVX, prevVY float64
	havePrev := false
	pairs, consistent := 0, 0
	for i := 1; i < len(samples); i++ {
		dt := samples[i].Timestamp - samples[i-1].Timestamp
		if dt <= 0 {
			continue
		}
		vx := (samples[i].X - samples[i-1].X) / dt
		vy := (samples[i].Y - samples[i-1].Y) / dt
		if havePrev {
			pairs++
			if vx*prevVX >= 0 && vy*prevVY >= 0 {
				consistent++
			}
		}
		prevVX, prevVY = vx, vy
		havePrev = true
	}
	if pairs == 0 {
		return 1
	}
	return float64(consistent) / float64(pairs)
}

// EstimateUncertainty returns the per-axis error radius for a prediction
// horizonMs ahead: the standard deviation of recent interval velocities
// (px/ms) times the horizon, plus a fixed floor.
func EstimateUncertainty(samples []Sample, horizonMs float64) Uncertainty {
	if len(samples) < minUncertaintySamples {
		return Uncertainty{X: defaultUncertainty, Y: defaultUncertainty}
	}
	var vxBuf, vyBuf [32]float64
	vxs, vys := vxBuf[:0], vyBuf[:0]
	for i := 1; i < len(samples); i++ {
		dt := samples[i].Timestamp - samples[i-1].Timestamp
		if dt <= 0 {
			continue
		}
		vxs = append(vxs, (samples[i].X-samples[i-1].X)/dt)
		vys = append(vys, (samples[i].Y-samples[i-1].Y)/dt)
	}
	if len(vxs) < 2 {
		return Uncertainty{X: defaultUncertainty, Y: defaultUncertainty}
	}
	seconds := horizonMs / 1000
	return Uncertainty{
		X: math.Sqrt(stat.Variance(vxs, nil))*seconds*1000 + uncertaintyFloor,
		Y: math.Sqrt(stat.Variance(vys, nil))*seconds*1000 + uncertaintyFloor,
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
