package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordN(s *Scorer, alg Algorithm, n int, err float64) {
	for i := 0; i < n; i++ {
		s.Record(alg, err)
	}
}

func TestScorerRecord(t *testing.T) {
	t.Parallel()
	s := NewScorer()
	s.Record(Linear, 10)
	s.Record(Linear, 30)
	s.Record(Linear, 150)

	m := s.Metrics(Linear)
	assert.Equal(t, Linear, m.Algorithm)
	assert.Equal(t, uint64(3), m.SampleCount)
	assert.InDelta(t, 190.0/3, m.AverageError, 1e-9)
	assert.Equal(t, 150.0, m.MaxError)
	assert.InDelta(t, (0.9+0.7+0)/3, m.Accuracy, 1e-9)

	s.Record(Algorithm(42), 1)
	assert.Equal(t, AlgorithmMetrics{Algorithm: Quadratic}, s.Metrics(Quadratic))
	assert.Equal(t, AlgorithmMetrics{Algorithm: Algorithm(42)}, s.Metrics(Algorithm(42)))

	all := s.All()
	require.Len(t, all, len(Algorithms))
	for i, alg := range Algorithms {
		assert.Equal(t, alg, all[i].Algorithm)
	}

	s.Reset()
	assert.Equal(t, AlgorithmMetrics{Algorithm: Linear}, s.Metrics(Linear))
}

func TestScorerBest(t *testing.T) {
	t.Parallel()

	t.Run("fallback until five verifications", func(t *testing.T) {
		s := NewScorer()
		recordN(s, Linear, minQualifyingSamples-1, 0)
		assert.Equal(t, Kalman, s.Best(Kalman))
		s.Record(Linear, 0)
		assert.Equal(t, Linear, s.Best(Kalman))
	})

	t.Run("highest accuracy wins", func(t *testing.T) {
		s := NewScorer()
		recordN(s, Linear, 5, 1)
		recordN(s, Quadratic, 5, 50)
		recordN(s, Spline, 20, 0.5)
		assert.Equal(t, Spline, s.Best(Kalman))
	})

	t.Run("ties go to the earlier algorithm", func(t *testing.T) {
		s := NewScorer()
		recordN(s, Kalman, 5, 10)
		recordN(s, Quadratic, 5, 10)
		assert.Equal(t, Quadratic, s.Best(Linear))
	})
}

func TestScorerRanked(t *testing.T) {
	t.Parallel()
	s := NewScorer()
	assert.Equal(t, [numAlgorithms]Algorithm{Kalman, Linear, Quadratic, WeightedAverage, Spline}, s.Ranked(Kalman))

	recordN(s, Linear, 5, 10)   // 0.90
	recordN(s, Quadratic, 5, 5) // 0.95
	recordN(s, Spline, 3, 0)    // not qualified

	assert.Equal(t, [numAlgorithms]Algorithm{Kalman, Quadratic, Linear, WeightedAverage, Spline}, s.Ranked(Kalman))
	assert.Equal(t, [numAlgorithms]Algorithm{Linear, Quadratic, WeightedAverage, Kalman, Spline}, s.Ranked(Linear))
}
