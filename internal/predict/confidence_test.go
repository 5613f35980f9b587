package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceBelowMinSamples(t *testing.T) {
	t.Parallel()
	cfg := DefaultEngineConfig()
	samples := lineSamples(cfg.MinSamples-1, 1, 0, 10)
	assert.Zero(t, Confidence(samples, 0, cfg))
	assert.Zero(t, Confidence(nil, 0, cfg))
}

func TestConfidenceFactors(t *testing.T) {
	t.Parallel()
	cfg := DefaultEngineConfig()

	straight := lineSamples(10, 1, 1, 10)
	assert.InDelta(t, 1.0, Confidence(straight, 0, cfg), 1e-12)
	assert.InDelta(t, 0.75, Confidence(straight, 50, cfg), 1e-12)
	assert.InDelta(t, 0.5, Confidence(straight, cfg.MaxHorizonMs, cfg), 1e-12)
	assert.InDelta(t, 0.5, Confidence(straight, 10*cfg.MaxHorizonMs, cfg), 1e-12)

	// Four samples: count factor 0.4.
	assert.InDelta(t, 0.4, Confidence(straight[:4], 0, cfg), 1e-12)

	// Velocities 1, 1, 1, -1, -1: three of four pairs agree.
	reversal := []Sample{
		{X: 0, Timestamp: 0},
		{X: 10, Timestamp: 10},
		{X: 20, Timestamp: 20},
		{X: 30, Timestamp: 30},
		{X: 20, Timestamp: 40},
		{X: 10, Timestamp: 50},
	}
	assert.InDelta(t, 0.6*0.75, Confidence(reversal, 0, cfg), 1e-12)
}

func TestConfidenceDecreasesWithHorizon(t *testing.T) {
	t.Parallel()
	cfg := DefaultEngineConfig()
	samples := lineSamples(8, 0.3, -0.2, 16)
	prev := Confidence(samples, 0, cfg)
	for h := 5.0; h <= 2*cfg.MaxHorizonMs; h += 5 {
		c := Confidence(samples, h, cfg)
		assert.LessOrEqual(t, c, prev, "h=%g", h)
		assert.GreaterOrEqual(t, c, 0.0)
		prev = c
	}
}

func TestConfidenceZigzag(t *testing.T) {
	t.Parallel()
	cfg := DefaultEngineConfig()
	var zigzag []Sample
	for i := 0; i < 10; i++ {
		zigzag = append(zigzag, Sample{X: float64(i%2) * 20, Y: 5, Timestamp: float64(i) * 10})
	}
	assert.Zero(t, Confidence(zigzag, 0, cfg))
}

func TestDirectionConsistencySkipsInvalidIntervals(t *testing.T) {
	t.Parallel()
	samples := []Sample{
		{X: 0, Timestamp: 0},
		{X: 10, Timestamp: 10},
		{X: -500, Timestamp: 10},
		{X: -490, Timestamp: 20},
	}
	assert.Equal(t, 1.0, directionConsistency(samples))
	assert.Equal(t, 1.0, directionConsistency(samples[:2]))
}

func TestEstimateUncertainty(t *testing.T) {
	t.Parallel()

	t.Run("too few samples", func(t *testing.T) {
		got := EstimateUncertainty(lineSamples(2, 1, 1, 10), 50)
		assert.Equal(t, Uncertainty{X: 10, Y: 10}, got)
	})

	t.Run("no usable intervals", func(t *testing.T) {
		samples := []Sample{{Timestamp: 5}, {X: 1, Timestamp: 5}, {X: 2, Timestamp: 5}}
		assert.Equal(t, Uncertainty{X: 10, Y: 10}, EstimateUncertainty(samples, 50))
	})

	t.Run("steady motion hits the floor", func(t *testing.T) {
		got := EstimateUncertainty(lineSamples(6, 0.5, -0.5, 10), 80)
		assert.InDelta(t, 5, got.X, 1e-9)
		assert.InDelta(t, 5, got.Y, 1e-9)
	})

	t.Run("scales with velocity spread and horizon", func(t *testing.T) {
		samples := []Sample{
			{X: 0, Timestamp: 0},
			{X: 10, Timestamp: 10},
			{X: 30, Timestamp: 20},
		}
		// Velocities 1 and 2 px/ms: sample std dev √0.5.
		got := EstimateUncertainty(samples, 100)
		assert.InDelta(t, 0.7071067811865476*100+5, got.X, 1e-9)
		assert.InDelta(t, 5, got.Y, 1e-9)

		wider := EstimateUncertainty(samples, 200)
		assert.Greater(t, wider.X, got.X)
	})
}
