package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.BaseHorizonMs == nil || *cfg.BaseHorizonMs != 30 {
		t.Errorf("Expected BaseHorizonMs 30, got %v", cfg.BaseHorizonMs)
	}
	if cfg.MaxHorizonMs == nil || *cfg.MaxHorizonMs != 100 {
		t.Errorf("Expected MaxHorizonMs 100, got %v", cfg.MaxHorizonMs)
	}
	if cfg.AdaptiveHorizon == nil || *cfg.AdaptiveHorizon != true {
		t.Errorf("Expected AdaptiveHorizon true, got %v", cfg.AdaptiveHorizon)
	}
	if cfg.SessionIdleTimeout == nil || *cfg.SessionIdleTimeout != "30s" {
		t.Errorf("Expected SessionIdleTimeout '30s', got %v", cfg.SessionIdleTimeout)
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.GetMinSamples())
	assert.Equal(t, 20, cfg.GetMaxHistory())
	assert.Equal(t, 0.1, cfg.GetProcessNoise())
	assert.Equal(t, 1.0, cfg.GetMeasurementNoise())
	assert.Equal(t, 0.5, cfg.GetMinConfidence())
	assert.Equal(t, 500.0, cfg.GetVelocityThreshold())
	assert.Equal(t, "kalman", cfg.GetDefaultAlgorithm())
	assert.Equal(t, "full", cfg.GetKalmanMode())
	assert.True(t, cfg.GetAutoSelect())
}

func TestEmptyTuningConfigUsesDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()
	def := DefaultTuningConfig()

	assert.Equal(t, def.GetBaseHorizonMs(), cfg.GetBaseHorizonMs())
	assert.Equal(t, def.GetMaxHorizonMs(), cfg.GetMaxHorizonMs())
	assert.Equal(t, def.GetAdaptiveHorizon(), cfg.GetAdaptiveHorizon())
	assert.Equal(t, def.GetVelocityThreshold(), cfg.GetVelocityThreshold())
	assert.Equal(t, def.GetMinSamples(), cfg.GetMinSamples())
	assert.Equal(t, def.GetMaxHistory(), cfg.GetMaxHistory())
	assert.Equal(t, def.GetKalmanMode(), cfg.GetKalmanMode())
	assert.Equal(t, def.GetDefaultAlgorithm(), cfg.GetDefaultAlgorithm())
	assert.Equal(t, 30*time.Second, cfg.GetSessionIdleTimeout())
	assert.Equal(t, 256, cfg.GetMaxSessions())
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "base_horizon_ms": 20,
  "max_horizon_ms": 80,
  "adaptive_horizon": false,
  "min_samples": 4,
  "kalman_mode": "scalar",
  "default_algorithm": "quadratic",
  "session_idle_timeout": "2m"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	assert.Equal(t, 20.0, cfg.GetBaseHorizonMs())
	assert.Equal(t, 80.0, cfg.GetMaxHorizonMs())
	assert.False(t, cfg.GetAdaptiveHorizon())
	assert.Equal(t, 4, cfg.GetMinSamples())
	assert.Equal(t, "scalar", cfg.GetKalmanMode())
	assert.Equal(t, "quadratic", cfg.GetDefaultAlgorithm())
	assert.Equal(t, 2*time.Minute, cfg.GetSessionIdleTimeout())

	// Unset fields fall back to defaults.
	assert.Equal(t, 20, cfg.GetMaxHistory())
	assert.Equal(t, 0.5, cfg.GetMinConfidence())
}

func TestLoadTuningConfigYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tuning.yaml")

	testYAML := `
max_horizon_ms: 120
velocity_threshold: 800
auto_select: false
default_algorithm: weighted_average
`
	require.NoError(t, os.WriteFile(configPath, []byte(testYAML), 0644))

	cfg, err := LoadTuningConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 120.0, cfg.GetMaxHorizonMs())
	assert.Equal(t, 800.0, cfg.GetVelocityThreshold())
	assert.False(t, cfg.GetAutoSelect())
	assert.Equal(t, "weighted_average", cfg.GetDefaultAlgorithm())
	assert.Equal(t, 30.0, cfg.GetBaseHorizonMs())
}

func TestLoadTuningConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{"wrong extension", write("config.txt", "{}")},
		{"missing file", filepath.Join(tmpDir, "missing.json")},
		{"malformed json", write("bad.json", "{not json")},
		{"malformed yaml", write("bad.yaml", "max_horizon_ms: [1, 2")},
		{"invalid value", write("negative.json", `{"base_horizon_ms": -1}`)},
		{"inverted horizons", write("inverted.json", `{"base_horizon_ms": 50, "max_horizon_ms": 40}`)},
		{"min samples above history", write("history.json", `{"min_samples": 30}`)},
		{"NaN horizon in yaml", write("nan.yaml", "max_horizon_ms: .nan\n")},
		{"infinite noise in yaml", write("inf.yaml", "process_noise: .inf\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestLoadTuningConfigTooLarge(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	big := make([]byte, maxConfigFileSize+1)
	for i := range big {
		big[i] = ' '
	}
	require.NoError(t, os.WriteFile(configPath, big, 0644))

	_, err := LoadTuningConfig(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{"empty", &TuningConfig{}, false},
		{"defaults", DefaultTuningConfig(), false},
		{"zero max horizon", &TuningConfig{MaxHorizonMs: ptrFloat64(0)}, true},
		{"zero velocity threshold", &TuningConfig{VelocityThreshold: ptrFloat64(0)}, true},
		{"zero min samples", &TuningConfig{MinSamples: ptrInt(0)}, true},
		{"zero history", &TuningConfig{MaxHistory: ptrInt(0)}, true},
		{"negative process noise", &TuningConfig{ProcessNoise: ptrFloat64(-0.1)}, true},
		{"zero measurement noise", &TuningConfig{MeasurementNoise: ptrFloat64(0)}, true},
		{"confidence above one", &TuningConfig{MinConfidence: ptrFloat64(1.5)}, true},
		{"bad idle timeout", &TuningConfig{SessionIdleTimeout: ptrString("soon")}, true},
		{"zero sessions", &TuningConfig{MaxSessions: ptrInt(0)}, true},
		{"history shrunk below min samples", &TuningConfig{MaxHistory: ptrInt(2)}, true},
		{"NaN max horizon", &TuningConfig{MaxHorizonMs: ptrFloat64(math.NaN())}, true},
		{"NaN base horizon", &TuningConfig{BaseHorizonMs: ptrFloat64(math.NaN())}, true},
		{"infinite max horizon", &TuningConfig{MaxHorizonMs: ptrFloat64(math.Inf(1))}, true},
		{"infinite velocity threshold", &TuningConfig{VelocityThreshold: ptrFloat64(math.Inf(1))}, true},
		{"NaN process noise", &TuningConfig{ProcessNoise: ptrFloat64(math.NaN())}, true},
		{"infinite measurement noise", &TuningConfig{MeasurementNoise: ptrFloat64(math.Inf(1))}, true},
		{"NaN min confidence", &TuningConfig{MinConfidence: ptrFloat64(math.NaN())}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetSessionIdleTimeoutParseFailure(t *testing.T) {
	cfg := &TuningConfig{SessionIdleTimeout: ptrString("not-a-duration")}
	assert.Equal(t, DefaultSessionIdleTimeout, cfg.GetSessionIdleTimeout())
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	cfg, err := LoadTuningConfig(filepath.Join("..", "..", DefaultConfigPath))
	require.NoError(t, err)

	// The checked-in defaults file must agree with the built-in defaults.
	def := DefaultTuningConfig()
	assert.Equal(t, def.GetBaseHorizonMs(), cfg.GetBaseHorizonMs())
	assert.Equal(t, def.GetMaxHorizonMs(), cfg.GetMaxHorizonMs())
	assert.Equal(t, def.GetMinSamples(), cfg.GetMinSamples())
	assert.Equal(t, def.GetMaxHistory(), cfg.GetMaxHistory())
	assert.Equal(t, def.GetProcessNoise(), cfg.GetProcessNoise())
	assert.Equal(t, def.GetMeasurementNoise(), cfg.GetMeasurementNoise())
	assert.Equal(t, def.GetMinConfidence(), cfg.GetMinConfidence())
	assert.Equal(t, def.GetVelocityThreshold(), cfg.GetVelocityThreshold())
	assert.Equal(t, def.GetDefaultAlgorithm(), cfg.GetDefaultAlgorithm())
	assert.Equal(t, def.GetSessionIdleTimeout(), cfg.GetSessionIdleTimeout())
	assert.Equal(t, def.GetMaxSessions(), cfg.GetMaxSessions())
}
