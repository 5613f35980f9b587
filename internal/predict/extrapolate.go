package predict

// Minimum sample counts for the closed-form extrapolators.
const (
	minLinearSamples    = 2
	minQuadraticSamples = 3
	minWeightedSamples  = 3
	// weightedWindow bounds how many trailing samples the weighted model reads.
	weightedWindow = 5
)

// ExtrapolateLinear projects the last two samples forward by horizonMs
// along their velocity. It fails with fewer than two samples or when
// the final interval is not strictly positive.
func ExtrapolateLinear(samples []Sample, horizonMs float64) (x, y float64, ok bool) {
	n := len(samples)
	if n < minLinearSamples {
		return 0, 0, false
	}
	prev, last := samples[n-2], samples[n-1]
	dt := last.Timestamp - prev.Timestamp
	if dt <= 0 {
		return 0, 0, false
	}
	vx := (last.X - prev.X) / dt
	vy := (last.Y - prev.Y) / dt
	return last.X + vx*horizonMs, last.Y + vy*horizonMs, true
}

// ExtrapolateQuadratic fits velocity and acceleration to the last three
// samples and projects forward by horizonMs:
//
//	p' = p + v2*h + a*h²/2,  a = (v2 - v1) / mean(dt1, dt2)
//
// It fails with fewer than three samples or when either interval is not
// strictly positive.
func ExtrapolateQuadratic(samples []Sample, horizonMs float64) (x, y float64, ok bool) {
	n := len(samples)
	if n < minQuadraticSamples {
		return 0, 0, false
	}
	p0, p1, p2 := samples[n-3], samples[n-2], samples[n-1]
	dt1 := p1.Timestamp - p0.Timestamp
	dt2 := p2.Timestamp - p1.Timestamp
	if dt1 <= 0 || dt2 <= 0 {
		return 0, 0, false
	}
	v1x, v1y := (p1.X-p0.X)/dt1, (p1.Y-p0.Y)/dt1
	v2x, v2y := (p2.X-p1.X)/dt2, (p2.Y-p1.Y)/dt2
	avgDt := (dt1 + dt2) / 2
	ax, ay := (v2x-v1x)/avgDt, (v2y-v1y)/avgDt
	h2 := horizonMs * horizonMs
	return p2.X + v2x*horizonMs + 0.5*ax*h2, p2.Y + v2y*horizonMs + 0.5*ay*h2, true
}

// ExtrapolateWeightedAverage averages the interval velocities of the last
// five samples, weighting interval i of m by i/m so later motion counts
// more. Intervals with a non-positive duration are skipped; the model
// fails when nothing usable remains.
func ExtrapolateWeightedAverage(samples []Sample, horizonMs float64) (x, y float64, ok bool) {
	n := len(samples)
	if n < minWeightedSamples {
		return 0, 0, false
	}
	window := samples
	if n > weightedWindow {
		window = samples[n-weightedWindow:]
	}
	intervals := len(window) - 1

	var sumVX, sumVY, sumW float64
	for i := 1; i <= intervals; i++ {
		a, b := window[i-1], window[i]
		dt := b.Timestamp - a.Timestamp
		if dt <= 0 {
			continue
		}
		w := float64(i) / float64(intervals)
		sumVX += w * (b.X - a.X) / dt
		sumVY += w * (b.Y - a.Y) / dt
		sumW += w
	}
	if sumW == 0 {
		return 0, 0, false
	}
	last := window[len(window)-1]
	return last.X + sumVX/sumW*horizonMs, last.Y + sumVY/sumW*horizonMs, true
}

// Extrapolate dispatches to the model named by alg. The Kalman model reads
// the filter state rather than samples.
func Extrapolate(alg Algorithm, samples []Sample, kf *KalmanFilter, horizonMs float64) (x, y float64, ok bool) {
	switch alg {
	case Linear:
		return ExtrapolateLinear(samples, horizonMs)
	case Quadratic, Spline:
		return ExtrapolateQuadratic(samples, horizonMs)
	case WeightedAverage:
		return ExtrapolateWeightedAverage(samples, horizonMs)
	case Kalman:
		if kf == nil {
			return 0, 0, false
		}
		return kf.Extrapolate(horizonMs)
	default:
		return 0, 0, false
	}
}
