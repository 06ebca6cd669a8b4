package ptz

import "math"

// Conversions between ONVIF's normalized coordinate spaces and hardware
// units. These are pure and never clamp; range clamping is the adapter's
// job because it differs between absolute and relative moves.

// PanToDegrees maps a normalized pan position [-1, 1] onto the generic
// ONVIF pan space [-180, 180] in whole degrees.
func PanToDegrees(x float32) int {
	return int(math.Round(float64(x) * 180))
}

// TiltToDegrees maps a normalized tilt position [-1, 1] onto [-90, 90].
func TiltToDegrees(y float32) int {
	return int(math.Round(float64(y) * 90))
}

// DegreesToPan is the inverse of PanToDegrees, used for status reporting.
func DegreesToPan(deg int) float32 {
	return float32(deg) / 180
}

// DegreesToTilt is the inverse of TiltToDegrees.
func DegreesToTilt(deg int) float32 {
	return float32(deg) / 90
}

// HardwareSpeed maps a normalized speed or velocity magnitude [0, 1] onto
// the driver speed range [15, 100].
func HardwareSpeed(v float32) int {
	abs := math.Abs(float64(v))
	return int(15 + abs*85)
}

// CommandSpeed picks the single command speed from a pan/tilt speed pair.
// The motor has one speed per axis pair, so the larger magnitude wins.
func CommandSpeed(x, y float32) float32 {
	ax := float32(math.Abs(float64(x)))
	ay := float32(math.Abs(float64(y)))
	if ax >= ay {
		return ax
	}
	return ay
}
