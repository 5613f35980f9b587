package predict

import "math"

// AdaptiveHorizon maps the current speed (vx, vy in px/s) onto a horizon
// between cfg.BaseHorizonMs and cfg.MaxHorizonMs. Faster motion looks
// further ahead. With adaptive horizons disabled it returns the base.
func AdaptiveHorizon(vx, vy float64, cfg EngineConfig) float64 {
	if !cfg.AdaptiveHorizon {
		return cfg.BaseHorizonMs
	}
	speed := math.Hypot(vx, vy)
	ratio := 0.0
	if cfg.VelocityThreshold > 0 {
		ratio = clamp01(speed / cfg.VelocityThreshold)
	}
	return cfg.BaseHorizonMs + ratio*(cfg.MaxHorizonMs-cfg.BaseHorizonMs)
}

// ClampHorizon bounds an explicitly requested horizon to [0, MaxHorizonMs].
func ClampHorizon(horizonMs float64, cfg EngineConfig) float64 {
	if math.IsNaN(horizonMs) || horizonMs < 0 {
		return 0
	}
	return math.Min(horizonMs, cfg.MaxHorizonMs)
}
