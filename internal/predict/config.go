package predict

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/pointer.predict/internal/config"
)

// ErrInvalidConfig is wrapped by every EngineConfig validation failure.
var ErrInvalidConfig = errors.New("invalid engine config")

// EngineConfig holds the engine parameters. It is treated as immutable:
// replace it wholesale with Engine.SetConfig rather than mutating fields.
type EngineConfig struct {
	BaseHorizonMs     float64    `json:"base_horizon_ms"`    // Horizon at rest
	MaxHorizonMs      float64    `json:"max_horizon_ms"`     // Horizon ceiling, also the explicit-request clamp
	MinSamples        int        `json:"min_samples"`        // Samples required before predicting
	MaxHistory        int        `json:"max_history"`        // Sample history capacity
	ProcessNoise      float64    `json:"process_noise"`      // Kalman process noise (q)
	MeasurementNoise  float64    `json:"measurement_noise"`  // Kalman measurement noise (r, px²)
	MinConfidence     float64    `json:"min_confidence"`     // Predictions below this are withheld [0, 1]
	AdaptiveHorizon   bool       `json:"adaptive_horizon"`   // Scale horizon with speed
	VelocityThreshold float64    `json:"velocity_threshold"` // Speed (px/s) at which the horizon reaches its max
	AutoSelect        bool       `json:"auto_select"`        // Route to the most accurate algorithm
	DefaultAlgorithm  Algorithm  `json:"default_algorithm"`  // Used until an algorithm qualifies, and when AutoSelect is off
	KalmanMode        KalmanMode `json:"kalman_mode"`        // Gain computation for the Kalman model
}

// DefaultEngineConfig returns production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BaseHorizonMs:     config.DefaultBaseHorizonMs,
		MaxHorizonMs:      config.DefaultMaxHorizonMs,
		MinSamples:        config.DefaultMinSamples,
		MaxHistory:        config.DefaultMaxHistory,
		ProcessNoise:      config.DefaultProcessNoise,
		MeasurementNoise:  config.DefaultMeasurementNoise,
		MinConfidence:     config.DefaultMinConfidence,
		AdaptiveHorizon:   config.DefaultAdaptiveHorizon,
		VelocityThreshold: config.DefaultVelocityThreshold,
		AutoSelect:        config.DefaultAutoSelect,
		DefaultAlgorithm:  Kalman,
		KalmanMode:        KalmanFull,
	}
}

// EngineConfigFromTuning builds an EngineConfig from a loaded TuningConfig.
// Unset tuning fields take their defaults.
func EngineConfigFromTuning(cfg *config.TuningConfig) (EngineConfig, error) {
	alg, err := ParseAlgorithm(cfg.GetDefaultAlgorithm())
	if err != nil {
		return EngineConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	mode, err := ParseKalmanMode(cfg.GetKalmanMode())
	if err != nil {
		return EngineConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	ec := EngineConfig{
		BaseHorizonMs:     cfg.GetBaseHorizonMs(),
		MaxHorizonMs:      cfg.GetMaxHorizonMs(),
		MinSamples:        cfg.GetMinSamples(),
		MaxHistory:        cfg.GetMaxHistory(),
		ProcessNoise:      cfg.GetProcessNoise(),
		MeasurementNoise:  cfg.GetMeasurementNoise(),
		MinConfidence:     cfg.GetMinConfidence(),
		AdaptiveHorizon:   cfg.GetAdaptiveHorizon(),
		VelocityThreshold: cfg.GetVelocityThreshold(),
		AutoSelect:        cfg.GetAutoSelect(),
		DefaultAlgorithm:  alg,
		KalmanMode:        mode,
	}
	if err := ec.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return ec, nil
}

// Validate rejects configurations that indicate a programming error.
func (c EngineConfig) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"base_horizon_ms", c.BaseHorizonMs},
		{"max_horizon_ms", c.MaxHorizonMs},
		{"velocity_threshold", c.VelocityThreshold},
		{"process_noise", c.ProcessNoise},
		{"measurement_noise", c.MeasurementNoise},
		{"min_confidence", c.MinConfidence},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidConfig, f.name, f.v)
		}
	}
	switch {
	case c.BaseHorizonMs < 0:
		return fmt.Errorf("%w: base_horizon_ms must be >= 0, got %g", ErrInvalidConfig, c.BaseHorizonMs)
	case c.MaxHorizonMs < c.BaseHorizonMs:
		return fmt.Errorf("%w: max_horizon_ms (%g) must be >= base_horizon_ms (%g)", ErrInvalidConfig, c.MaxHorizonMs, c.BaseHorizonMs)
	case c.MaxHorizonMs <= 0:
		return fmt.Errorf("%w: max_horizon_ms must be > 0, got %g", ErrInvalidConfig, c.MaxHorizonMs)
	case c.MaxHistory < 1:
		return fmt.Errorf("%w: max_history must be >= 1, got %d", ErrInvalidConfig, c.MaxHistory)
	case c.MinSamples < 1:
		return fmt.Errorf("%w: min_samples must be >= 1, got %d", ErrInvalidConfig, c.MinSamples)
	case c.MinSamples > c.MaxHistory:
		return fmt.Errorf("%w: min_samples (%d) exceeds max_history (%d)", ErrInvalidConfig, c.MinSamples, c.MaxHistory)
	case c.ProcessNoise <= 0:
		return fmt.Errorf("%w: process_noise must be > 0, got %g", ErrInvalidConfig, c.ProcessNoise)
	case c.MeasurementNoise <= 0:
		return fmt.Errorf("%w: measurement_noise must be > 0, got %g", ErrInvalidConfig, c.MeasurementNoise)
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return fmt.Errorf("%w: min_confidence must be within [0, 1], got %g", ErrInvalidConfig, c.MinConfidence)
	case c.VelocityThreshold <= 0:
		return fmt.Errorf("%w: velocity_threshold must be > 0, got %g", ErrInvalidConfig, c.VelocityThreshold)
	case !c.DefaultAlgorithm.Valid():
		return fmt.Errorf("%w: default_algorithm %d is not a known algorithm", ErrInvalidConfig, int(c.DefaultAlgorithm))
	case c.KalmanMode != KalmanFull && c.KalmanMode != KalmanScalar:
		return fmt.Errorf("%w: unknown kalman mode %d", ErrInvalidConfig, int(c.KalmanMode))
	}
	return nil
}
