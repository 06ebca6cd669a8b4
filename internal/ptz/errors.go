package ptz

import "errors"

// Motion and preset errors surfaced to the service facade. None of them is
// fatal; the adapter can always be re-initialized after a failure.
var (
	// ErrNotInitialized is returned by every operation before Init
	// succeeds or after Cleanup.
	ErrNotInitialized = errors.New("ptz: adapter not initialized")

	// ErrHardware wraps a driver call that was rejected by the hardware.
	ErrHardware = errors.New("ptz: hardware failure")

	// ErrTimeout means the motion-completion poll exceeded its budget.
	// The move may still complete later; the cached position was already
	// updated when the hardware accepted the command.
	ErrTimeout = errors.New("ptz: motion completion timed out")

	// ErrPresetLimit means the preset store is at capacity.
	ErrPresetLimit = errors.New("ptz: preset limit reached")

	// ErrPresetNotFound means no preset matches the given token.
	ErrPresetNotFound = errors.New("ptz: preset not found")
)
