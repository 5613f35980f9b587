package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pointer.predict/internal/evaluate"
	"github.com/banshee-data/pointer.predict/internal/predict"
)

// ErrNotFound is returned when a run or comparison ID is unknown.
var ErrNotFound = errors.New("not found")

// RunRecord is a stored evaluation run.
type RunRecord struct {
	RunID           string                     `json:"run_id"`
	ComparisonID    string                     `json:"comparison_id"`
	Trace           string                     `json:"trace"`
	Label           string                     `json:"label"`
	IsBest          bool                       `json:"is_best"`
	Samples         int                        `json:"samples"`
	Predictions     int64                      `json:"predictions"`
	Verified        int64                      `json:"verified"`
	Accurate        int64                      `json:"accurate"`
	Accuracy        float64                    `json:"overall_accuracy"`
	MeanError       float64                    `json:"mean_error"`
	P95Error        float64                    `json:"p95_error"`
	MaxError        float64                    `json:"max_error"`
	AvgHorizonMs    float64                    `json:"avg_horizon_ms"`
	AvgConfidence   float64                    `json:"avg_confidence"`
	AvgProcessingUs float64                    `json:"avg_processing_us"`
	Config          predict.EngineConfig       `json:"config"`
	Algorithms      []predict.AlgorithmMetrics `json:"algorithms"`
	CreatedAt       time.Time                  `json:"created_at"`
}

const runColumns = `run_id, comparison_id, trace, label, is_best, samples, predictions,
	verified, accurate, overall_accuracy, mean_error, p95_error, max_error,
	avg_horizon_ms, avg_confidence, avg_processing_us, config_json,
	algorithms_json, created_at`

// SaveComparison stores every run of cmp under one new comparison ID and
// returns it.
func (s *Store) SaveComparison(cmp *evaluate.Comparison) (string, error) {
	comparisonID := uuid.NewString()
	tx, err := s.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, r := range cmp.Runs {
		if _, err := insertRun(tx, comparisonID, r, r.Label == cmp.Best, now); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit comparison: %w", err)
	}
	return comparisonID, nil
}

// SaveRun stores a single run as its own comparison and returns the run ID.
func (s *Store) SaveRun(r *evaluate.Result) (string, error) {
	tx, err := s.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runID, err := insertRun(tx, uuid.NewString(), r, true, time.Now())
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

func insertRun(tx *sql.Tx, comparisonID string, r *evaluate.Result, best bool, at time.Time) (string, error) {
	cfgJSON, err := json.Marshal(r.Config)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	algJSON, err := json.Marshal(r.Algorithms)
	if err != nil {
		return "", fmt.Errorf("failed to encode algorithm metrics: %w", err)
	}

	runID := uuid.NewString()
	_, err = tx.Exec(`INSERT INTO evaluation_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, comparisonID, r.Trace, r.Label, best, r.Samples, r.Predictions,
		r.VerifiedPredictions, r.AccuratePredictions, r.OverallAccuracy,
		r.MeanError, r.P95Error, r.MaxError, r.AverageHorizonMs,
		r.AverageConfidence, r.AvgProcessingUs, string(cfgJSON), string(algJSON),
		at.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run %s/%s: %w", r.Trace, r.Label, err)
	}
	return runID, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 means 100.
func (s *Store) Runs(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Query(`SELECT `+runColumns+` FROM evaluation_runs
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// Run returns one run by ID.
func (s *Store) Run(runID string) (*RunRecord, error) {
	rows, err := s.Query(`SELECT `+runColumns+` FROM evaluation_runs WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return &runs[0], nil
}

// Comparison returns every run stored under comparisonID in insertion
// order.
func (s *Store) Comparison(comparisonID string) ([]RunRecord, error) {
	rows, err := s.Query(`SELECT `+runColumns+` FROM evaluation_runs
		WHERE comparison_id = ? ORDER BY rowid`, comparisonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("comparison %s: %w", comparisonID, ErrNotFound)
	}
	return runs, nil
}

func scanRuns(rows *sql.Rows) ([]RunRecord, error) {
	var out []RunRecord
	for rows.Next() {
		var (
			r                RunRecord
			cfgJSON, algJSON string
			createdNs        int64
		)
		if err := rows.Scan(
			&r.RunID, &r.ComparisonID, &r.Trace, &r.Label, &r.IsBest, &r.Samples,
			&r.Predictions, &r.Verified, &r.Accurate, &r.Accuracy, &r.MeanError,
			&r.P95Error, &r.MaxError, &r.AvgHorizonMs, &r.AvgConfidence,
			&r.AvgProcessingUs, &cfgJSON, &algJSON, &createdNs,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
			return nil, fmt.Errorf("run %s: failed to decode config: %w", r.RunID, err)
		}
		if err := json.Unmarshal([]byte(algJSON), &r.Algorithms); err != nil {
			return nil, fmt.Errorf("run %s: failed to decode algorithm metrics: %w", r.RunID, err)
		}
		r.CreatedAt = time.Unix(0, createdNs).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
