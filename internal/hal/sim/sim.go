// Package sim provides an in-memory PTZ motor driver for development hosts
// that have no motor hardware attached. Motion takes a short, deterministic
// amount of wall time so completion polling behaves like the real thing.
package sim

import (
	"fmt"
	"sync"
	"time"

	"onvif-camd/internal/ptz"
)

// Per-step settle time of the simulated motor.
const stepDuration = 2 * time.Millisecond

// Driver is a simulated pan/tilt motor. It tracks step positions per axis
// and reports an axis busy until the simulated motion deadline passes.
type Driver struct {
	mu       sync.Mutex
	open     bool
	pan      int
	tilt     int
	busyPan  time.Time
	busyTilt time.Time
	speeds   map[ptz.Axis]int
}

// New creates a simulated driver homed at center.
func New() *Driver {
	return &Driver{speeds: make(map[ptz.Axis]int)}
}

// Open acquires the simulated session.
func (d *Driver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return fmt.Errorf("sim: already open")
	}
	d.open = true
	return nil
}

// Close releases the simulated session.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}

// MoveToPosition jumps both axes toward an absolute position, holding each
// axis busy proportionally to the distance traveled.
func (d *Driver) MoveToPosition(panDeg, tiltDeg int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return fmt.Errorf("sim: not open")
	}

	now := time.Now()
	d.busyPan = now.Add(time.Duration(absInt(panDeg-d.pan)) * stepDuration)
	d.busyTilt = now.Add(time.Duration(absInt(tiltDeg-d.tilt)) * stepDuration)
	d.pan = panDeg
	d.tilt = tiltDeg
	return nil
}

// Turn steps one axis in the given direction. The sign convention matches
// the motor driver the adapter was written against: left and down are the
// positive directions.
func (d *Driver) Turn(dir ptz.Direction, steps int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return fmt.Errorf("sim: not open")
	}

	now := time.Now()
	switch dir {
	case ptz.DirectionLeft:
		d.pan = clampInt(d.pan+steps, ptz.MinPanDegrees, ptz.MaxPanDegrees)
		d.busyPan = now.Add(time.Duration(steps) * stepDuration)
	case ptz.DirectionRight:
		d.pan = clampInt(d.pan-steps, ptz.MinPanDegrees, ptz.MaxPanDegrees)
		d.busyPan = now.Add(time.Duration(steps) * stepDuration)
	case ptz.DirectionDown:
		d.tilt = clampInt(d.tilt+steps, ptz.MinTiltDegrees, ptz.MaxTiltDegrees)
		d.busyTilt = now.Add(time.Duration(steps) * stepDuration)
	case ptz.DirectionUp:
		d.tilt = clampInt(d.tilt-steps, ptz.MinTiltDegrees, ptz.MaxTiltDegrees)
		d.busyTilt = now.Add(time.Duration(steps) * stepDuration)
	}
	return nil
}

// TurnStop ends any simulated motion on the direction's axis.
func (d *Driver) TurnStop(dir ptz.Direction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return fmt.Errorf("sim: not open")
	}

	now := time.Now()
	switch dir {
	case ptz.DirectionLeft, ptz.DirectionRight:
		d.busyPan = now
	case ptz.DirectionUp, ptz.DirectionDown:
		d.busyTilt = now
	}
	return nil
}

// StepPosition reads back the simulated step position of an axis.
func (d *Driver) StepPosition(axis ptz.Axis) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if axis == ptz.AxisPan {
		return d.pan
	}
	return d.tilt
}

// Status reports busy until the simulated motion deadline passes.
func (d *Driver) Status(axis ptz.Axis) (ptz.MotionState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ptz.StateBusy, fmt.Errorf("sim: not open")
	}

	deadline := d.busyPan
	if axis == ptz.AxisTilt {
		deadline = d.busyTilt
	}
	if time.Now().Before(deadline) {
		return ptz.StateBusy, nil
	}
	return ptz.StateIdle, nil
}

// SetSpeed records the per-axis speed; the simulation does not scale its
// settle time by speed.
func (d *Driver) SetSpeed(axis ptz.Axis, value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speeds[axis] = value
	return nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
