// Package units holds the time and speed conversions shared by the
// predictors and the trace generator. Timestamps are milliseconds; speeds
// are configured in pixels per second.
package units

// MillisPerSecond converts between the two time bases.
const MillisPerSecond = 1000

// Speed units accepted by ConvertSpeed.
const (
	PxPerSecond = "px/s"
	PxPerMs     = "px/ms"
)

// MsToSeconds converts a duration in milliseconds to seconds.
func MsToSeconds(ms float64) float64 {
	return ms / MillisPerSecond
}

// ConvertSpeed converts a speed in px/s to the target unit. Unknown units
// leave the value unchanged.
func ConvertSpeed(pxPerSecond float64, target string) float64 {
	switch target {
	case PxPerMs:
		return pxPerSecond / MillisPerSecond
	default:
		return pxPerSecond
	}
}
