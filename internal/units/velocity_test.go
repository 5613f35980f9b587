package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMsToSeconds(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.1, MsToSeconds(100), 1e-12)
	assert.Zero(t, MsToSeconds(0))
}

func TestConvertSpeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		unit string
		want float64
	}{
		{"px/s unchanged", 600, PxPerSecond, 600},
		{"px/ms", 600, PxPerMs, 0.6},
		{"unknown unchanged", 600, "furlongs", 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ConvertSpeed(tt.in, tt.unit), 1e-12)
		})
	}
}
