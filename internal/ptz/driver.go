package ptz

// Direction is a discrete motor movement direction.
type Direction int

const (
	DirectionLeft Direction = iota
	DirectionRight
	DirectionUp
	DirectionDown
)

// String returns the lowercase direction name used in logs.
func (d Direction) String() string {
	switch d {
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "unknown"
	}
}

// Axis identifies a motor axis.
type Axis int

const (
	AxisPan Axis = iota
	AxisTilt
)

// String returns the lowercase axis name used in logs.
func (a Axis) String() string {
	if a == AxisPan {
		return "pan"
	}
	return "tilt"
}

// MotionState is the per-axis busy/idle status reported by the hardware.
type MotionState int

const (
	StateIdle MotionState = iota
	StateBusy
)

// Driver defines the interface to the PTZ motor hardware.
//
// The adapter owns a single Driver session for its entire initialized
// lifetime; no other component may call the Driver directly.
type Driver interface {
	// Open acquires the hardware session
	Open() error

	// Close releases the hardware session
	Close() error

	// MoveToPosition moves both axes directly to an absolute degree position
	MoveToPosition(panDeg, tiltDeg int) error

	// Turn moves an axis a number of discrete steps in the given direction
	Turn(dir Direction, steps int) error

	// TurnStop stops motion in the given direction; safe to call when idle
	TurnStop(dir Direction) error

	// StepPosition reads back the current step position of an axis
	StepPosition(axis Axis) int

	// Status reports whether an axis is still moving
	Status(axis Axis) (MotionState, error)

	// SetSpeed sets the movement speed for an axis
	SetSpeed(axis Axis, value int) error
}
