package trace

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/banshee-data/pointer.predict/internal/predict"
	"github.com/banshee-data/pointer.predict/internal/units"
)

// Shape selects a synthetic motion pattern.
type Shape string

const (
	ShapeLine   Shape = "line"
	ShapeCircle Shape = "circle"
	ShapeZigzag Shape = "zigzag"
	ShapeStall  Shape = "stall"
)

// Shapes lists every generator in a stable order.
var Shapes = []Shape{ShapeLine, ShapeCircle, ShapeZigzag, ShapeStall}

// ParseShape resolves a shape name.
func ParseShape(s string) (Shape, error) {
	sh := Shape(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Shapes {
		if sh == known {
			return sh, nil
		}
	}
	return "", fmt.Errorf("unknown trace shape %q (want line, circle, zigzag or stall)", s)
}

// Synthetic stream geometry.
const (
	originX      = 200.0
	originY      = 200.0
	circleRadius = 150.0
	zigzagLegMs  = 250.0 // time between direction reversals
)

// GenOptions controls sample timing, speed and noise.
type GenOptions struct {
	Samples    int     // Number of samples to emit
	IntervalMs float64 // Time between samples
	Speed      float64 // Pointer speed in px/s
	Jitter     float64 // Std dev of Gaussian position noise in px; 0 disables
	Seed       uint64  // Jitter seed; equal seeds give equal traces
}

// DefaultGenOptions is a 60Hz stream moving at 800px/s for two seconds.
func DefaultGenOptions() GenOptions {
	return GenOptions{
		Samples:    120,
		IntervalMs: units.MillisPerSecond / 60.0,
		Speed:      800,
	}
}

func (o GenOptions) validate() error {
	switch {
	case o.Samples < 2:
		return fmt.Errorf("samples must be >= 2, got %d", o.Samples)
	case o.IntervalMs <= 0:
		return fmt.Errorf("interval_ms must be > 0, got %g", o.IntervalMs)
	case o.Speed < 0:
		return fmt.Errorf("speed must be >= 0, got %g", o.Speed)
	case o.Jitter < 0:
		return fmt.Errorf("jitter must be >= 0, got %g", o.Jitter)
	}
	return nil
}

// Generate builds a synthetic trace of the given shape.
func Generate(shape Shape, opts GenOptions) (*Trace, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	var path func(tMs float64) (x, y float64)
	switch shape {
	case ShapeLine:
		path = linePath(opts.Speed)
	case ShapeCircle:
		path = circlePath(opts.Speed)
	case ShapeZigzag:
		path = zigzagPath(opts.Speed)
	case ShapeStall:
		path = stallPath(opts.Speed, float64(opts.Samples-1)*opts.IntervalMs/2)
	default:
		return nil, fmt.Errorf("unknown trace shape %q", shape)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	tr := &Trace{
		Name:    string(shape),
		Samples: make([]predict.Sample, opts.Samples),
	}
	for i := range tr.Samples {
		t := float64(i) * opts.IntervalMs
		x, y := path(t)
		if opts.Jitter > 0 {
			x += rng.NormFloat64() * opts.Jitter
			y += rng.NormFloat64() * opts.Jitter
		}
		tr.Samples[i] = predict.Sample{X: x, Y: y, Timestamp: t}
	}
	return tr, nil
}

// linePath heads down and to the right at a 30 degree angle.
func linePath(speed float64) func(float64) (float64, float64) {
	vx := units.ConvertSpeed(speed*math.Cos(math.Pi/6), units.PxPerMs)
	vy := units.ConvertSpeed(speed*math.Sin(math.Pi/6), units.PxPerMs)
	return func(t float64) (float64, float64) {
		return originX + vx*t, originY + vy*t
	}
}

// circlePath orbits (origin + radius) at constant tangential speed.
func circlePath(speed float64) func(float64) (float64, float64) {
	cx, cy := originX+circleRadius, originY+circleRadius
	omega := units.ConvertSpeed(speed, units.PxPerMs) / circleRadius // rad/ms
	return func(t float64) (float64, float64) {
		a := omega * t
		return cx + circleRadius*math.Cos(a), cy + circleRadius*math.Sin(a)
	}
}

// zigzagPath advances along x while y reverses every zigzagLegMs.
func zigzagPath(speed float64) func(float64) (float64, float64) {
	v := units.ConvertSpeed(speed/math.Sqrt2, units.PxPerMs)
	return func(t float64) (float64, float64) {
		leg := math.Floor(t / zigzagLegMs)
		into := t - leg*zigzagLegMs
		y := into * v
		if int(leg)%2 == 1 {
			y = (zigzagLegMs - into) * v
		}
		return originX + v*t, originY + y
	}
}

// stallPath moves right until stopMs and then holds still.
func stallPath(speed, stopMs float64) func(float64) (float64, float64) {
	v := units.ConvertSpeed(speed, units.PxPerMs)
	return func(t float64) (float64, float64) {
		return originX + v*math.Min(t, stopMs), originY
	}
}
