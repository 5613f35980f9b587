package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointer.predict/internal/api"
	"github.com/banshee-data/pointer.predict/internal/evaluate"
	"github.com/banshee-data/pointer.predict/internal/predict"
	"github.com/banshee-data/pointer.predict/internal/store"
	"github.com/banshee-data/pointer.predict/internal/trace"
	"github.com/banshee-data/pointer.predict/internal/version"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pointer-predict "+version.Version)
	assert.Contains(t, out, version.GitSHA)
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "circle.csv")

	_, err := execute(t, "generate", "--shape", "circle", "--samples", "50", "--jitter", "0.5", "--out", path)
	require.NoError(t, err)

	tr, err := trace.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "circle", tr.Name)
	assert.Len(t, tr.Samples, 50)
}

func TestGenerateToStdout(t *testing.T) {
	out, err := execute(t, "generate", "--shape", "stall", "--samples", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "timestamp_ms,x,y")
}

func TestGenerateAllShapes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces")
	_, err := execute(t, "generate", "--shape", "all", "--out", dir)
	require.NoError(t, err)

	for _, shape := range trace.Shapes {
		_, err := os.Stat(filepath.Join(dir, string(shape)+".csv"))
		assert.NoError(t, err, shape)
	}
}

func TestGenerateErrors(t *testing.T) {
	_, err := execute(t, "generate", "--shape", "spiral")
	assert.Error(t, err)
	_, err = execute(t, "generate", "--shape", "all")
	assert.Error(t, err)
	_, err = execute(t, "generate", "--samples", "1")
	assert.Error(t, err)
}

func TestEvaluateStoresAndPlots(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	plotDir := filepath.Join(dir, "plots")

	out, err := execute(t, "evaluate", "gen:line", "--quiet", "--min-confidence", "0",
		"--db", dbPath, "--plot-dir", plotDir)
	require.NoError(t, err)
	assert.Contains(t, out, "TRACE line")
	assert.Contains(t, out, "Best:")
	assert.Contains(t, out, "Stored:")

	for _, name := range []string{"line-errors.png", "line-timeline.png", "line.html"} {
		info, err := os.Stat(filepath.Join(plotDir, name))
		if assert.NoError(t, err, name) {
			assert.Greater(t, info.Size(), int64(0), name)
		}
	}

	out, err = execute(t, "runs", "--db", dbPath, "--json")
	require.NoError(t, err)
	var runs []store.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	assert.Len(t, runs, len(predict.Algorithms)+1)

	out, err = execute(t, "runs", "--db", dbPath, "--comparison", runs[0].ComparisonID)
	require.NoError(t, err)
	assert.Contains(t, out, "RUNS")
	assert.Contains(t, out, evaluate.LabelAuto)
	assert.Contains(t, out, "Schema:")
	assert.Contains(t, out, "v2")

	_, err = execute(t, "runs", "--db", dbPath, "--comparison", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEvaluateJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zig.csv")
	_, err := execute(t, "generate", "--shape", "zigzag", "--samples", "60", "--out", path)
	require.NoError(t, err)

	out, err := execute(t, "evaluate", path, "--json", "--min-confidence", "0")
	require.NoError(t, err)

	var got []evaluate.Comparison
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "zig", got[0].Trace)
	assert.Len(t, got[0].Runs, len(predict.Algorithms)+1)
}

func TestEvaluateSingleAlgorithm(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "evaluate", "gen:line", "gen:zigzag", "--quiet", "--min-confidence", "0",
		"--algorithm", "weighted_average", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "TRACE line")
	assert.Contains(t, out, "TRACE zigzag")
	assert.Contains(t, out, "Stored:")

	out, err = execute(t, "runs", "--db", dbPath, "--json")
	require.NoError(t, err)
	var runs []store.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, "weighted_average", r.Label)
		assert.True(t, r.IsBest)
	}
	assert.NotEqual(t, runs[0].ComparisonID, runs[1].ComparisonID)

	out, err = execute(t, "evaluate", "gen:stall", "--json", "--algorithm", evaluate.LabelAuto)
	require.NoError(t, err)
	var got []evaluate.Comparison
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	require.Len(t, got[0].Runs, 1)
	assert.Equal(t, evaluate.LabelAuto, got[0].Runs[0].Label)

	_, err = execute(t, "evaluate", "gen:line", "--algorithm", "bezier")
	assert.Error(t, err)
}

func TestEvaluateErrors(t *testing.T) {
	_, err := execute(t, "evaluate", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
	_, err = execute(t, "evaluate", "gen:spiral")
	assert.Error(t, err)
	_, err = execute(t, "evaluate", "gen:line", "--min-confidence", "3")
	assert.Error(t, err)
	_, err = execute(t, "evaluate")
	assert.Error(t, err)
}

func TestRunsRequiresDB(t *testing.T) {
	t.Setenv("POINTER_PREDICT_DB", "")
	_, err := execute(t, "runs")
	assert.Error(t, err)
}

func newReplayServer(t *testing.T) (*httptest.Server, *api.SessionManager) {
	t.Helper()
	cfg := predict.DefaultEngineConfig()
	cfg.MinConfidence = 0
	return newReplayServerWith(t, cfg)
}

func newReplayServerWith(t *testing.T, cfg predict.EngineConfig) (*httptest.Server, *api.SessionManager) {
	t.Helper()
	m, err := api.NewSessionManager(cfg, api.SessionOptions{MaxSessions: 4, AutoStart: true})
	require.NoError(t, err)
	srv := httptest.NewServer(api.NewServer(m, nil).ServeMux())
	t.Cleanup(srv.Close)
	return srv, m
}

func TestReplayCommand(t *testing.T) {
	srv, m := newReplayServer(t)

	out, err := execute(t, "replay", "gen:line", "--server", srv.URL, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "REPLAY line")
	assert.Contains(t, out, "Accuracy:")
	assert.Equal(t, 0, m.Len(), "session is deleted afterwards")

	_, err = execute(t, "replay", "gen:circle", "--server", srv.URL, "--quiet", "--keep", "--pointer", "pen-1")
	require.NoError(t, err)
	s, ok := m.Get("pen-1")
	require.True(t, ok)
	_ = s.Do(func(e *predict.Engine) error {
		met := e.Metrics()
		assert.Greater(t, met.TotalPredictions, uint64(0))
		assert.Greater(t, met.VerifiedPredictions, uint64(0))
		return nil
	})
}

func TestReplayWithAlgorithm(t *testing.T) {
	cfg := predict.DefaultEngineConfig()
	cfg.MinConfidence = 0
	cfg.AutoSelect = false
	cfg.DefaultAlgorithm = predict.Kalman
	srv, m := newReplayServerWith(t, cfg)

	out, err := execute(t, "replay", "gen:line", "--server", srv.URL, "--quiet",
		"--keep", "--pointer", "pen-2", "--algorithm", "linear")
	require.NoError(t, err)
	assert.Contains(t, out, "Algorithm:")

	s, ok := m.Get("pen-2")
	require.True(t, ok)
	_ = s.Do(func(e *predict.Engine) error {
		met := e.Metrics()
		assert.Equal(t, predict.Linear, met.CurrentAlgorithm)
		assert.Greater(t, met.Algorithms[predict.Linear].SampleCount, uint64(0))
		assert.Zero(t, met.Algorithms[predict.Kalman].SampleCount)
		return nil
	})
}

func TestReplayErrors(t *testing.T) {
	srv, _ := newReplayServer(t)

	_, err := execute(t, "replay", "gen:line", "--server", srv.URL, "--quiet", "--algorithm", "bezier")
	assert.Error(t, err)

	_, err = execute(t, "replay", "gen:line", "--server", srv.URL, "--quiet", "--pointer", "no spaces")
	assert.Error(t, err)
	_, err = execute(t, "replay", "gen:line", "--server", "http://127.0.0.1:1", "--quiet")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	tuning, cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, predict.DefaultEngineConfig(), cfg)
	assert.Equal(t, 256, tuning.GetMaxSessions())

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_algorithm: linear\nmax_sessions: 3\n"), 0o644))
	tuning, cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, predict.Linear, cfg.DefaultAlgorithm)
	assert.Equal(t, 3, tuning.GetMaxSessions())

	_, _, err = loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("PP_TEST_STR", "hello")
	t.Setenv("PP_TEST_INT", "42")
	t.Setenv("PP_TEST_BAD_INT", "forty")
	t.Setenv("PP_TEST_BOOL", "yes")
	t.Setenv("PP_TEST_BAD_BOOL", "maybe")

	assert.Equal(t, "hello", getEnvStr("PP_TEST_STR", "x"))
	assert.Equal(t, "x", getEnvStr("PP_TEST_UNSET", "x"))
	assert.Equal(t, 42, getEnvInt("PP_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("PP_TEST_BAD_INT", 1))
	assert.True(t, getEnvBool("PP_TEST_BOOL", false))
	assert.True(t, getEnvBool("PP_TEST_BAD_BOOL", true))
	assert.False(t, getEnvBool("PP_TEST_UNSET", false))
}
