package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Defaults applied by the Get* accessors when a field is unset.
const (
	DefaultBaseHorizonMs      = 30.0
	DefaultMaxHorizonMs       = 100.0
	DefaultMinSamples         = 3
	DefaultMaxHistory         = 20
	DefaultProcessNoise       = 0.1
	DefaultMeasurementNoise   = 1.0
	DefaultMinConfidence      = 0.5
	DefaultAdaptiveHorizon    = true
	DefaultVelocityThreshold  = 500.0
	DefaultAutoSelect         = true
	DefaultAlgorithm          = "kalman"
	DefaultKalmanMode         = "full"
	DefaultSessionIdleTimeout = 30 * time.Second
	DefaultMaxSessions        = 256
)

// maxConfigFileSize bounds how much of a config file is read.
const maxConfigFileSize = 1 * 1024 * 1024

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/config endpoint so the same document can be
// used for both startup configuration and inspection. Every field is
// optional; the Get* accessors fill in defaults.
type TuningConfig struct {
	// Horizon params
	BaseHorizonMs     *float64 `json:"base_horizon_ms,omitempty" yaml:"base_horizon_ms,omitempty"`
	MaxHorizonMs      *float64 `json:"max_horizon_ms,omitempty" yaml:"max_horizon_ms,omitempty"`
	AdaptiveHorizon   *bool    `json:"adaptive_horizon,omitempty" yaml:"adaptive_horizon,omitempty"`
	VelocityThreshold *float64 `json:"velocity_threshold,omitempty" yaml:"velocity_threshold,omitempty"` // px/s

	// History params
	MinSamples *int `json:"min_samples,omitempty" yaml:"min_samples,omitempty"`
	MaxHistory *int `json:"max_history,omitempty" yaml:"max_history,omitempty"`

	// Kalman params
	ProcessNoise     *float64 `json:"process_noise,omitempty" yaml:"process_noise,omitempty"`
	MeasurementNoise *float64 `json:"measurement_noise,omitempty" yaml:"measurement_noise,omitempty"`
	KalmanMode       *string  `json:"kalman_mode,omitempty" yaml:"kalman_mode,omitempty"` // "full" or "scalar"

	// Selection params
	MinConfidence    *float64 `json:"min_confidence,omitempty" yaml:"min_confidence,omitempty"`
	AutoSelect       *bool    `json:"auto_select,omitempty" yaml:"auto_select,omitempty"`
	DefaultAlgorithm *string  `json:"default_algorithm,omitempty" yaml:"default_algorithm,omitempty"`

	// Service params
	SessionIdleTimeout *string `json:"session_idle_timeout,omitempty" yaml:"session_idle_timeout,omitempty"` // duration string like "30s"
	MaxSessions        *int    `json:"max_sessions,omitempty" yaml:"max_sessions,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		BaseHorizonMs:      ptrFloat64(DefaultBaseHorizonMs),
		MaxHorizonMs:       ptrFloat64(DefaultMaxHorizonMs),
		AdaptiveHorizon:    ptrBool(DefaultAdaptiveHorizon),
		VelocityThreshold:  ptrFloat64(DefaultVelocityThreshold),
		MinSamples:         ptrInt(DefaultMinSamples),
		MaxHistory:         ptrInt(DefaultMaxHistory),
		ProcessNoise:       ptrFloat64(DefaultProcessNoise),
		MeasurementNoise:   ptrFloat64(DefaultMeasurementNoise),
		KalmanMode:         ptrString(DefaultKalmanMode),
		MinConfidence:      ptrFloat64(DefaultMinConfidence),
		AutoSelect:         ptrBool(DefaultAutoSelect),
		DefaultAlgorithm:   ptrString(DefaultAlgorithm),
		SessionIdleTimeout: ptrString(DefaultSessionIdleTimeout.String()),
		MaxSessions:        ptrInt(DefaultMaxSessions),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file.
// The extension selects the decoder (.json, .yaml, .yml) and the file must
// be under 1MB. Fields omitted from the file retain their default values,
// so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid. Only fields
// that are set are checked; cross-field checks use the effective values.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*float64{
		"base_horizon_ms":    c.BaseHorizonMs,
		"max_horizon_ms":     c.MaxHorizonMs,
		"velocity_threshold": c.VelocityThreshold,
		"process_noise":      c.ProcessNoise,
		"measurement_noise":  c.MeasurementNoise,
		"min_confidence":     c.MinConfidence,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%s must be finite, got %g", name, *v)
		}
	}
	if c.BaseHorizonMs != nil && *c.BaseHorizonMs < 0 {
		return fmt.Errorf("base_horizon_ms must be non-negative, got %g", *c.BaseHorizonMs)
	}
	if c.MaxHorizonMs != nil && *c.MaxHorizonMs <= 0 {
		return fmt.Errorf("max_horizon_ms must be positive, got %g", *c.MaxHorizonMs)
	}
	if c.GetMaxHorizonMs() < c.GetBaseHorizonMs() {
		return fmt.Errorf("max_horizon_ms (%g) must be >= base_horizon_ms (%g)", c.GetMaxHorizonMs(), c.GetBaseHorizonMs())
	}
	if c.VelocityThreshold != nil && *c.VelocityThreshold <= 0 {
		return fmt.Errorf("velocity_threshold must be positive, got %g", *c.VelocityThreshold)
	}
	if c.MinSamples != nil && *c.MinSamples < 1 {
		return fmt.Errorf("min_samples must be at least 1, got %d", *c.MinSamples)
	}
	if c.MaxHistory != nil && *c.MaxHistory < 1 {
		return fmt.Errorf("max_history must be at least 1, got %d", *c.MaxHistory)
	}
	if c.GetMinSamples() > c.GetMaxHistory() {
		return fmt.Errorf("min_samples (%d) must not exceed max_history (%d)", c.GetMinSamples(), c.GetMaxHistory())
	}
	if c.ProcessNoise != nil && *c.ProcessNoise <= 0 {
		return fmt.Errorf("process_noise must be positive, got %g", *c.ProcessNoise)
	}
	if c.MeasurementNoise != nil && *c.MeasurementNoise <= 0 {
		return fmt.Errorf("measurement_noise must be positive, got %g", *c.MeasurementNoise)
	}
	if c.MinConfidence != nil && (*c.MinConfidence < 0 || *c.MinConfidence > 1) {
		return fmt.Errorf("min_confidence must be between 0 and 1, got %g", *c.MinConfidence)
	}
	if c.SessionIdleTimeout != nil && *c.SessionIdleTimeout != "" {
		if _, err := time.ParseDuration(*c.SessionIdleTimeout); err != nil {
			return fmt.Errorf("invalid session_idle_timeout '%s': %w", *c.SessionIdleTimeout, err)
		}
	}
	if c.MaxSessions != nil && *c.MaxSessions < 1 {
		return fmt.Errorf("max_sessions must be at least 1, got %d", *c.MaxSessions)
	}
	return nil
}

// GetBaseHorizonMs returns the base_horizon_ms value or the default.
func (c *TuningConfig) GetBaseHorizonMs() float64 {
	if c.BaseHorizonMs == nil {
		return DefaultBaseHorizonMs
	}
	return *c.BaseHorizonMs
}

// GetMaxHorizonMs returns the max_horizon_ms value or the default.
func (c *TuningConfig) GetMaxHorizonMs() float64 {
	if c.MaxHorizonMs == nil {
		return DefaultMaxHorizonMs
	}
	return *c.MaxHorizonMs
}

// GetAdaptiveHorizon returns the adaptive_horizon value or the default.
func (c *TuningConfig) GetAdaptiveHorizon() bool {
	if c.AdaptiveHorizon == nil {
		return DefaultAdaptiveHorizon
	}
	return *c.AdaptiveHorizon
}

// GetVelocityThreshold returns the velocity_threshold value or the default.
func (c *TuningConfig) GetVelocityThreshold() float64 {
	if c.VelocityThreshold == nil {
		return DefaultVelocityThreshold
	}
	return *c.VelocityThreshold
}

// GetMinSamples returns the min_samples value or the default.
func (c *TuningConfig) GetMinSamples() int {
	if c.MinSamples == nil {
		return DefaultMinSamples
	}
	return *c.MinSamples
}

// GetMaxHistory returns the max_history value or the default.
func (c *TuningConfig) GetMaxHistory() int {
	if c.MaxHistory == nil {
		return DefaultMaxHistory
	}
	return *c.MaxHistory
}

// GetProcessNoise returns the process_noise value or the default.
func (c *TuningConfig) GetProcessNoise() float64 {
	if c.ProcessNoise == nil {
		return DefaultProcessNoise
	}
	return *c.ProcessNoise
}

// GetMeasurementNoise returns the measurement_noise value or the default.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return DefaultMeasurementNoise
	}
	return *c.MeasurementNoise
}

// GetKalmanMode returns the kalman_mode value or the default.
func (c *TuningConfig) GetKalmanMode() string {
	if c.KalmanMode == nil || *c.KalmanMode == "" {
		return DefaultKalmanMode
	}
	return *c.KalmanMode
}

// GetMinConfidence returns the min_confidence value or the default.
func (c *TuningConfig) GetMinConfidence() float64 {
	if c.MinConfidence == nil {
		return DefaultMinConfidence
	}
	return *c.MinConfidence
}

// GetAutoSelect returns the auto_select value or the default.
func (c *TuningConfig) GetAutoSelect() bool {
	if c.AutoSelect == nil {
		return DefaultAutoSelect
	}
	return *c.AutoSelect
}

// GetDefaultAlgorithm returns the default_algorithm value or the default.
func (c *TuningConfig) GetDefaultAlgorithm() string {
	if c.DefaultAlgorithm == nil || *c.DefaultAlgorithm == "" {
		return DefaultAlgorithm
	}
	return *c.DefaultAlgorithm
}

// GetSessionIdleTimeout parses and returns the SessionIdleTimeout as a time.Duration.
func (c *TuningConfig) GetSessionIdleTimeout() time.Duration {
	if c.SessionIdleTimeout == nil || *c.SessionIdleTimeout == "" {
		return DefaultSessionIdleTimeout
	}
	d, err := time.ParseDuration(*c.SessionIdleTimeout)
	if err != nil {
		return DefaultSessionIdleTimeout // default on parse error
	}
	return d
}

// GetMaxSessions returns the max_sessions value or the default.
func (c *TuningConfig) GetMaxSessions() int {
	if c.MaxSessions == nil {
		return DefaultMaxSessions
	}
	return *c.MaxSessions
}
