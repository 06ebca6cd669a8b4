package ptz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPanToDegrees(t *testing.T) {
	tests := []struct {
		name string
		x    float32
		want int
	}{
		{"full right", 1, 180},
		{"full left", -1, -180},
		{"center", 0, 0},
		{"half", 0.5, 90},
		{"rounds up", 0.501, 90},
		{"rounds nearest", 0.503, 91},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PanToDegrees(tt.x))
		})
	}
}

func TestTiltToDegrees(t *testing.T) {
	assert.Equal(t, 90, TiltToDegrees(1))
	assert.Equal(t, -90, TiltToDegrees(-1))
	assert.Equal(t, 45, TiltToDegrees(0.5))
	assert.Equal(t, 0, TiltToDegrees(0))
}

func TestDegreeInverses(t *testing.T) {
	assert.InDelta(t, 0.5, DegreesToPan(90), 0.001)
	assert.InDelta(t, -1, DegreesToPan(-180), 0.001)
	assert.InDelta(t, 0.5, DegreesToTilt(45), 0.001)
	assert.InDelta(t, 1, DegreesToTilt(90), 0.001)
}

func TestHardwareSpeed(t *testing.T) {
	// Driver speed range is [15, 100]; sign is carried separately.
	assert.Equal(t, 15, HardwareSpeed(0))
	assert.Equal(t, 100, HardwareSpeed(1))
	assert.Equal(t, 100, HardwareSpeed(-1))
	assert.Equal(t, 57, HardwareSpeed(0.5))
}

func TestCommandSpeed(t *testing.T) {
	// One speed per axis pair: the larger magnitude wins.
	assert.InDelta(t, 0.8, CommandSpeed(0.8, 0.3), 0.001)
	assert.InDelta(t, 0.9, CommandSpeed(0.2, -0.9), 0.001)
	assert.InDelta(t, 0.5, CommandSpeed(-0.5, 0.5), 0.001)
	assert.InDelta(t, 0, CommandSpeed(0, 0), 0.001)
}
