package predict

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlgorithm(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Algorithm
	}{
		{"linear", Linear},
		{"Quadratic", Quadratic},
		{"weighted-average", WeightedAverage},
		{" kalman ", Kalman},
		{"spline", Spline},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseAlgorithm("neural")
	assert.Error(t, err)
}

func TestAlgorithmStringRoundTrip(t *testing.T) {
	t.Parallel()
	for _, alg := range Algorithms {
		parsed, err := ParseAlgorithm(alg.String())
		require.NoError(t, err)
		assert.Equal(t, alg, parsed)
	}
	assert.Equal(t, "algorithm(9)", Algorithm(9).String())
	assert.False(t, Algorithm(-1).Valid())
}

func TestAlgorithmJSON(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(map[string]Algorithm{"a": WeightedAverage})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"weighted_average"}`, string(data))

	var decoded struct {
		A Algorithm `json:"a"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"kalman"}`), &decoded))
	assert.Equal(t, Kalman, decoded.A)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"nope"}`), &decoded))

	_, err = json.Marshal(Algorithm(42))
	assert.Error(t, err)
}
