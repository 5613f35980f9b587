package predict

import (
	"fmt"
	"strings"
)

// Algorithm identifies a prediction model. The set is closed; the
// declaration order doubles as the selector's tie-break order.
type Algorithm int

const (
	Linear Algorithm = iota
	Quadratic
	WeightedAverage
	Kalman
	// Spline is reserved. It currently evaluates the quadratic model so
	// that a manually selected spline still produces predictions.
	Spline

	numAlgorithms
)

// Algorithms lists every algorithm in declaration order.
var Algorithms = [numAlgorithms]Algorithm{Linear, Quadratic, WeightedAverage, Kalman, Spline}

var algorithmNames = [numAlgorithms]string{
	Linear:          "linear",
	Quadratic:       "quadratic",
	WeightedAverage: "weighted_average",
	Kalman:          "kalman",
	Spline:          "spline",
}

// Valid reports whether a names a declared algorithm.
func (a Algorithm) Valid() bool {
	return a >= 0 && a < numAlgorithms
}

func (a Algorithm) String() string {
	if !a.Valid() {
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
	return algorithmNames[a]
}

// ParseAlgorithm resolves a name produced by String. Matching ignores case
// and accepts '-' in place of '_'.
func ParseAlgorithm(s string) (Algorithm, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range algorithmNames {
		if name == norm {
			return Algorithm(i), nil
		}
	}
	return 0, fmt.Errorf("unknown prediction algorithm %q", s)
}

// MarshalText encodes the algorithm by name for JSON and YAML.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid algorithm %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText decodes an algorithm name.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
