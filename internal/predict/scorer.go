package predict

import "math"

const (
	// minQualifyingSamples is how many verified predictions an algorithm
	// needs before the selector will pick it.
	minQualifyingSamples = 5
	// errorScale is the error (px) at which a verification scores zero
	// accuracy.
	errorScale = 100.0
)

// AlgorithmMetrics accumulates verified prediction error for one algorithm.
type AlgorithmMetrics struct {
	Algorithm    Algorithm `json:"algorithm"`
	AverageError float64   `json:"average_error"` // Running mean error (px)
	MaxError     float64   `json:"max_error"`     // Worst error seen (px)
	SampleCount  uint64    `json:"sample_count"`  // Verified predictions
	Accuracy     float64   `json:"accuracy"`      // Running mean of 1 - min(1, err/100)
}

// Scorer tracks per-algorithm accuracy and chooses the algorithm for the
// next prediction. The zero value is not ready; use NewScorer.
type Scorer struct {
	metrics [numAlgorithms]AlgorithmMetrics
}

// NewScorer returns a scorer with empty metrics for every algorithm.
func NewScorer() *Scorer {
	s := &Scorer{}
	s.Reset()
	return s
}

// Reset clears every algorithm's metrics.
func (s *Scorer) Reset() {
	for i, alg := range Algorithms {
		s.metrics[i] = AlgorithmMetrics{Algorithm: alg}
	}
}

// Record folds one verified error into alg's running metrics.
func (s *Scorer) Record(alg Algorithm, err float64) {
	if !alg.Valid() || math.IsNaN(err) || math.IsInf(err, 0) {
		return
	}
	m := &s.metrics[alg]
	n := float64(m.SampleCount)
	score := 1 - math.Min(1, err/errorScale)
	m.AverageError = (m.AverageError*n + err) / (n + 1)
	m.Accuracy = (m.Accuracy*n + score) / (n + 1)
	if err > m.MaxError {
		m.MaxError = err
	}
	m.SampleCount++
}

// Metrics returns a copy of alg's metrics.
func (s *Scorer) Metrics(alg Algorithm) AlgorithmMetrics {
	if !alg.Valid() {
		return AlgorithmMetrics{Algorithm: alg}
	}
	return s.metrics[alg]
}

// All returns every algorithm's metrics in declaration order.
func (s *Scorer) All() []AlgorithmMetrics {
	out := make([]AlgorithmMetrics, numAlgorithms)
	copy(out, s.metrics[:])
	return out
}

// Best returns the most accurate algorithm with at least five verified
// predictions, or fallback when none qualifies. Ties go to the earlier
// declared algorithm.
func (s *Scorer) Best(fallback Algorithm) Algorithm {
	best := fallback
	bestAccuracy := -1.0
	for _, m := range s.metrics {
		if m.SampleCount < minQualifyingSamples {
			continue
		}
		if m.Accuracy > bestAccuracy {
			best, bestAccuracy = m.Algorithm, m.Accuracy
		}
	}
	return best
}

// Ranked returns the order in which algorithms are tried for a
// prediction: first, then qualified algorithms by descending accuracy,
// then the rest in declaration order.
func (s *Scorer) Ranked(first Algorithm) [numAlgorithms]Algorithm {
	var order [numAlgorithms]Algorithm
	var used [numAlgorithms]bool
	n := 0
	if first.Valid() {
		order[n] = first
		used[first] = true
		n++
	}
	for n < len(order) {
		pick := Algorithm(-1)
		pickAccuracy := -1.0
		for _, m := range s.metrics {
			if used[m.Algorithm] || m.SampleCount < minQualifyingSamples {
				continue
			}
			if m.Accuracy > pickAccuracy {
				pick, pickAccuracy = m.Algorithm, m.Accuracy
			}
		}
		if pick < 0 {
			break
		}
		order[n] = pick
		used[pick] = true
		n++
	}
	for _, alg := range Algorithms {
		if !used[alg] {
			order[n] = alg
			used[alg] = true
			n++
		}
	}
	return order
}
