package predict

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/pointer.predict/internal/units"
)

// KalmanMode selects how the filter computes its gain.
type KalmanMode int

const (
	// KalmanFull propagates the 6×6 covariance with the standard
	// predict/update equations.
	KalmanFull KalmanMode = iota
	// KalmanScalar blends every state component with a fixed gain
	// q/(q+r) and never touches the covariance.
	KalmanScalar
)

func (m KalmanMode) String() string {
	switch m {
	case KalmanFull:
		return "full"
	case KalmanScalar:
		return "scalar"
	default:
		return fmt.Sprintf("kalman_mode(%d)", int(m))
	}
}

// ParseKalmanMode resolves "full" or "scalar".
func ParseKalmanMode(s string) (KalmanMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "":
		return KalmanFull, nil
	case "scalar":
		return KalmanScalar, nil
	default:
		return 0, fmt.Errorf("unknown kalman mode %q", s)
	}
}

// MarshalText encodes the mode by name.
func (m KalmanMode) MarshalText() ([]byte, error) {
	if m != KalmanFull && m != KalmanScalar {
		return nil, fmt.Errorf("cannot marshal invalid kalman mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *KalmanMode) UnmarshalText(text []byte) error {
	parsed, err := ParseKalmanMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Internal numerical constants, not user-tunable.
const (
	// jerkSpectralScale converts the configured process noise into a white
	// jerk spectral density in (px/s³)²·s. Pointer motion routinely changes
	// acceleration by 10⁴ px/s² within 100 ms.
	jerkSpectralScale = 1e9
	// Prior variances for a freshly initialised track.
	initialVelocityVariance     = 1e6 // (px/s)²
	initialAccelerationVariance = 1e8 // (px/s²)²
	// maxCovarianceDiag caps diagonal growth across long sample gaps.
	maxCovarianceDiag = 1e12
	// minDeterminant guards the 2×2 innovation covariance inversion.
	minDeterminant = 1e-12
)

// State vector layout.
const (
	ix = iota
	iy
	ivx
	ivy
	iax
	iay
	stateDim
)

// KalmanState is a snapshot of the filter estimate. Velocities are px/s
// and accelerations px/s².
type KalmanState struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
	AX float64 `json:"ax"`
	AY float64 `json:"ay"`
}

// KalmanFilter tracks position, velocity and acceleration on both axes
// with a constant-acceleration motion model. Only positions are observed.
type KalmanFilter struct {
	processNoise     float64
	measurementNoise float64
	mode             KalmanMode

	initialized bool
	lastX       float64 // previous raw measurement
	lastY       float64
	lastT       float64 // ms

	x *mat.VecDense // [x, y, vx, vy, ax, ay]
	p *mat.Dense

	// Scratch space reused by every update.
	f   *mat.Dense
	q   *mat.Dense
	fp  *mat.Dense
	k   *mat.Dense
	khp *mat.Dense
	xp  *mat.VecDense
}

// NewKalmanFilter creates an uninitialised filter. The first Update seeds
// the position; velocity and acceleration start at zero.
func NewKalmanFilter(processNoise, measurementNoise float64, mode KalmanMode) *KalmanFilter {
	return &KalmanFilter{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
		mode:             mode,
		x:                mat.NewVecDense(stateDim, nil),
		p:                mat.NewDense(stateDim, stateDim, nil),
		f:                mat.NewDense(stateDim, stateDim, nil),
		q:                mat.NewDense(stateDim, stateDim, nil),
		fp:               mat.NewDense(stateDim, stateDim, nil),
		k:                mat.NewDense(stateDim, 2, nil),
		khp:              mat.NewDense(stateDim, stateDim, nil),
		xp:               mat.NewVecDense(stateDim, nil),
	}
}

// SetNoise replaces the noise parameters. The current estimate is kept.
func (kf *KalmanFilter) SetNoise(processNoise, measurementNoise float64) {
	kf.processNoise = processNoise
	kf.measurementNoise = measurementNoise
}

// SetMode switches the gain computation. The current estimate is kept.
func (kf *KalmanFilter) SetMode(mode KalmanMode) {
	kf.mode = mode
}

// Initialized reports whether at least one sample has been absorbed.
func (kf *KalmanFilter) Initialized() bool {
	return kf.initialized
}

// Reset returns the filter to its uninitialised condition.
func (kf *KalmanFilter) Reset() {
	kf.initialized = false
	kf.lastX, kf.lastY, kf.lastT = 0, 0, 0
	kf.x.Zero()
	kf.p.Zero()
}

// State returns the current estimate.
func (kf *KalmanFilter) State() KalmanState {
	return KalmanState{
		X:  kf.x.AtVec(ix),
		Y:  kf.x.AtVec(iy),
		VX: kf.x.AtVec(ivx),
		VY: kf.x.AtVec(ivy),
		AX: kf.x.AtVec(iax),
		AY: kf.x.AtVec(iay),
	}
}

// Velocity returns the estimated velocity in px/s.
func (kf *KalmanFilter) Velocity() (vx, vy float64) {
	return kf.x.AtVec(ivx), kf.x.AtVec(ivy)
}

// covariance returns a copy of the state covariance.
func (kf *KalmanFilter) covariance() *mat.Dense {
	return mat.DenseCopyOf(kf.p)
}

// Extrapolate evaluates the constant-acceleration model horizonMs past
// the current estimate. It fails only before the first Update.
func (kf *KalmanFilter) Extrapolate(horizonMs float64) (x, y float64, ok bool) {
	if !kf.initialized {
		return 0, 0, false
	}
	t := units.MsToSeconds(horizonMs)
	s := kf.State()
	return s.X + s.VX*t + 0.5*s.AX*t*t, s.Y + s.VY*t + 0.5*s.AY*t*t, true
}

// Update absorbs a measured position. A non-positive time step since the
// previous sample snaps the position to the measurement and keeps the
// velocity and acceleration estimates.
func (kf *KalmanFilter) Update(s Sample) {
	if !kf.initialized {
		kf.seed(s)
		return
	}

	dt := units.MsToSeconds(s.Timestamp - kf.lastT)
	if dt <= 0 {
		kf.x.SetVec(ix, s.X)
		kf.x.SetVec(iy, s.Y)
		kf.remember(s)
		return
	}

	switch kf.mode {
	case KalmanScalar:
		kf.updateScalar(s, dt)
	default:
		kf.predict(dt)
		kf.correct(s)
	}

	if !kf.isFinite() {
		kf.seed(s)
		return
	}
	kf.remember(s)
}

func (kf *KalmanFilter) seed(s Sample) {
	kf.x.Zero()
	kf.x.SetVec(ix, s.X)
	kf.x.SetVec(iy, s.Y)

	r := kf.measurementNoise
	kf.p.Zero()
	kf.p.Set(ix, ix, r)
	kf.p.Set(iy, iy, r)
	kf.p.Set(ivx, ivx, initialVelocityVariance)
	kf.p.Set(ivy, ivy, initialVelocityVariance)
	kf.p.Set(iax, iax, initialAccelerationVariance)
	kf.p.Set(iay, iay, initialAccelerationVariance)

	kf.initialized = true
	kf.remember(s)
}

func (kf *KalmanFilter) remember(s Sample) {
	kf.lastX, kf.lastY, kf.lastT = s.X, s.Y, s.Timestamp
}

// predict advances state and covariance by dt seconds:
//
//	x = F x,  P = F P Fᵀ + Q
func (kf *KalmanFilter) predict(dt float64) {
	// F = [I  dt·I  dt²/2·I]
	//     [0   I    dt·I   ]
	//     [0   0     I     ]
	kf.f.Zero()
	for i := 0; i < stateDim; i++ {
		kf.f.Set(i, i, 1)
	}
	half := 0.5 * dt * dt
	kf.f.Set(ix, ivx, dt)
	kf.f.Set(iy, ivy, dt)
	kf.f.Set(ix, iax, half)
	kf.f.Set(iy, iay, half)
	kf.f.Set(ivx, iax, dt)
	kf.f.Set(ivy, iay, dt)

	kf.xp.MulVec(kf.f, kf.x)
	kf.x.CopyVec(kf.xp)

	kf.fp.Mul(kf.f, kf.p)
	kf.p.Mul(kf.fp, kf.f.T())

	// Continuous white-jerk process noise, identical per axis.
	sj := kf.processNoise * jerkSpectralScale
	dt2 := dt * dt
	dt3 := dt2 * dt
	dt4 := dt3 * dt
	dt5 := dt4 * dt
	kf.q.Zero()
	for axis := 0; axis < 2; axis++ {
		p, v, a := ix+axis, ivx+axis, iax+axis
		kf.q.Set(p, p, sj*dt5/20)
		kf.q.Set(p, v, sj*dt4/8)
		kf.q.Set(p, a, sj*dt3/6)
		kf.q.Set(v, p, sj*dt4/8)
		kf.q.Set(v, v, sj*dt3/3)
		kf.q.Set(v, a, sj*dt2/2)
		kf.q.Set(a, p, sj*dt3/6)
		kf.q.Set(a, v, sj*dt2/2)
		kf.q.Set(a, a, sj*dt)
	}
	kf.p.Add(kf.p, kf.q)

	for i := 0; i < stateDim; i++ {
		if kf.p.At(i, i) > maxCovarianceDiag {
			kf.p.Set(i, i, maxCovarianceDiag)
		}
	}
}

// correct applies the measurement update with H selecting (x, y):
//
//	S = H P Hᵀ + R,  K = P Hᵀ S⁻¹,  x += K (z - H x),  P = (I - K H) P
func (kf *KalmanFilter) correct(s Sample) {
	r := kf.measurementNoise
	s00 := kf.p.At(ix, ix) + r
	s01 := kf.p.At(ix, iy)
	s10 := kf.p.At(iy, ix)
	s11 := kf.p.At(iy, iy) + r

	det := s00*s11 - s01*s10
	if det < minDeterminant {
		// Singular innovation covariance: trust the measurement outright.
		kf.x.SetVec(ix, s.X)
		kf.x.SetVec(iy, s.Y)
		return
	}
	inv00, inv01 := s11/det, -s01/det
	inv10, inv11 := -s10/det, s00/det

	for i := 0; i < stateDim; i++ {
		ph0, ph1 := kf.p.At(i, ix), kf.p.At(i, iy)
		kf.k.Set(i, 0, ph0*inv00+ph1*inv10)
		kf.k.Set(i, 1, ph0*inv01+ph1*inv11)
	}

	innovX := s.X - kf.x.AtVec(ix)
	innovY := s.Y - kf.x.AtVec(iy)
	for i := 0; i < stateDim; i++ {
		kf.x.SetVec(i, kf.x.AtVec(i)+kf.k.At(i, 0)*innovX+kf.k.At(i, 1)*innovY)
	}

	// H P is the first two rows of P.
	kf.khp.Mul(kf.k, kf.p.Slice(ix, iy+1, 0, stateDim))
	kf.p.Sub(kf.p, kf.khp)

	// Keep P symmetric against rounding drift.
	for i := 0; i < stateDim; i++ {
		for j := i + 1; j < stateDim; j++ {
			avg := 0.5 * (kf.p.At(i, j) + kf.p.At(j, i))
			kf.p.Set(i, j, avg)
			kf.p.Set(j, i, avg)
		}
	}
}

// updateScalar is the fixed-gain variant: each component is the model
// prediction nudged toward a value derived from the raw measurements.
func (kf *KalmanFilter) updateScalar(s Sample, dt float64) {
	q, r := kf.processNoise, kf.measurementNoise
	gain := q / (q + r)

	st := kf.State()
	predX := st.X + st.VX*dt + 0.5*st.AX*dt*dt
	predY := st.Y + st.VY*dt + 0.5*st.AY*dt*dt
	predVX := st.VX + st.AX*dt
	predVY := st.VY + st.AY*dt

	measVX := (s.X - kf.lastX) / dt
	measVY := (s.Y - kf.lastY) / dt
	measAX := (measVX - st.VX) / dt
	measAY := (measVY - st.VY) / dt

	kf.x.SetVec(ix, predX+gain*(s.X-predX))
	kf.x.SetVec(iy, predY+gain*(s.Y-predY))
	kf.x.SetVec(ivx, predVX+gain*(measVX-predVX))
	kf.x.SetVec(ivy, predVY+gain*(measVY-predVY))
	kf.x.SetVec(iax, st.AX+gain*(measAX-st.AX))
	kf.x.SetVec(iay, st.AY+gain*(measAY-st.AY))
}

// isFinite reports whether the state vector and covariance diagonal are
// free of NaN and ±Inf.
func (kf *KalmanFilter) isFinite() bool {
	for i := 0; i < stateDim; i++ {
		v := kf.x.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		d := kf.p.At(i, i)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return false
		}
	}
	return true
}
