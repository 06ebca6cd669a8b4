package ptz

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hardware motion limits for the pan/tilt head.
const (
	MaxPanDegrees  = 350
	MinPanDegrees  = -350
	MaxTiltDegrees = 130
	MinTiltDegrees = -130

	// Motor step-resolution limit per relative move call.
	MaxStepSizePan  = 16
	MaxStepSizeTilt = 8
)

const (
	defaultPollInterval = 5 * time.Millisecond
	defaultPollBudget   = 5 * time.Second
)

// Position is the pan/tilt position in hardware degrees.
type Position struct {
	PanDeg  int
	TiltDeg int
}

// moveTimer owns one continuous-move auto-stop goroutine. Closing cancel
// wakes the goroutine without firing the stop action; done is closed when
// the goroutine has fully exited.
type moveTimer struct {
	cancel chan struct{}
	done   chan struct{}
}

// Adapter turns pan/tilt commands into hardware motor actions, tracks the
// device position, and manages the continuous-move auto-stop timer.
//
// There is exactly one PTZ head per process, so there is exactly one
// Adapter. A single mutex guards all state; motion commands are serialized
// end-to-end because two commands racing on the same motor would be a
// hardware hazard.
type Adapter struct {
	mu  sync.Mutex
	drv Driver
	log *zap.Logger

	initialized      bool
	pos              Position
	continuousActive bool
	timeoutSeconds   int
	timer            *moveTimer

	// Poll cadence for motion-completion waits; fixed except in tests.
	pollInterval time.Duration
	pollBudget   time.Duration
}

// NewAdapter creates an adapter driving the given hardware. The adapter is
// not usable until Init.
func NewAdapter(drv Driver, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		drv:          drv,
		log:          log,
		pollInterval: defaultPollInterval,
		pollBudget:   defaultPollBudget,
	}
}

// Init opens the hardware session and homes the head to center. Calling
// Init on an already-initialized adapter is a no-op returning nil.
func (a *Adapter) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}

	if err := a.drv.Open(); err != nil {
		a.log.Error("ptz hardware open failed", zap.Error(err))
		return fmt.Errorf("%w: open: %w", ErrHardware, err)
	}

	// Reset to center position
	a.pos = Position{}
	if err := a.drv.MoveToPosition(0, 0); err != nil {
		a.log.Warn("ptz homing move rejected", zap.Error(err))
	}

	a.initialized = true
	a.log.Info("ptz adapter initialized")
	return nil
}

// Cleanup stops any continuous movement, joins the timer goroutine and
// releases the hardware session. Safe to call repeatedly and even if Init
// never ran.
func (a *Adapter) Cleanup() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return
	}

	if a.continuousActive {
		a.stopAllDirectionsLocked()
		a.continuousActive = false
	}
	a.cancelTimerLocked()

	if err := a.drv.Close(); err != nil {
		a.log.Warn("ptz hardware close failed", zap.Error(err))
	}
	a.initialized = false
	a.log.Info("ptz adapter cleaned up")
}

// Status returns the last commanded position. It is a cache, not a live
// hardware read: status must stay cheap relative to motion commands, at
// the cost of being eventually consistent with in-flight motion.
func (a *Adapter) Status() (Position, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return Position{}, ErrNotInitialized
	}
	return a.pos, nil
}

// ContinuousActive reports whether a continuous move's auto-stop timer is
// currently armed.
func (a *Adapter) ContinuousActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.continuousActive
}

// AbsoluteMove moves both axes to the given degree position. Out-of-range
// targets are silently clamped to the hardware limits, matching the legacy
// vendor driver. The call blocks until both axes report idle or the poll
// budget elapses, in which case ErrTimeout is returned even though the
// cached position has already been updated.
func (a *Adapter) AbsoluteMove(panDeg, tiltDeg, speed int) error {
	_ = speed // one fixed speed per absolute move on this motor

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return ErrNotInitialized
	}

	panDeg = clamp(panDeg, MinPanDegrees, MaxPanDegrees)
	tiltDeg = clamp(tiltDeg, MinTiltDegrees, MaxTiltDegrees)

	a.log.Info("ptz absolute move",
		zap.Int("pan_deg", panDeg), zap.Int("tilt_deg", tiltDeg))

	if err := a.drv.MoveToPosition(panDeg, tiltDeg); err != nil {
		a.log.Debug("absolute move rejected by hardware", zap.Error(err))
		return fmt.Errorf("%w: move to position: %w", ErrHardware, err)
	}

	// Position is updated as soon as the hardware accepts the command,
	// before motion completes. Clients depend on the early visibility.
	a.pos = Position{PanDeg: panDeg, TiltDeg: tiltDeg}

	return a.waitMotionIdleLocked()
}

// RelativeMove moves each axis independently by the given delta. The
// per-call magnitude is clamped to the motor step limit (16 pan / 8 tilt
// degrees); a larger requested delta needs further calls. The cached
// position changes by the clamped amount only.
//
// Sign convention follows the legacy hardware driver, not ONVIF's screen
// convention: positive pan turns left, positive tilt turns down.
func (a *Adapter) RelativeMove(panDelta, tiltDelta, speed int) error {
	_ = speed

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return ErrNotInitialized
	}

	a.log.Info("ptz relative move",
		zap.Int("pan_delta", panDelta), zap.Int("tilt_delta", tiltDelta))

	var panErr, tiltErr error

	if panDelta != 0 {
		dir := DirectionRight
		if panDelta > 0 {
			dir = DirectionLeft
		}
		steps := min(abs(panDelta), MaxStepSizePan)

		if panErr = a.drv.Turn(dir, steps); panErr == nil {
			if dir == DirectionLeft {
				a.pos.PanDeg += steps
			} else {
				a.pos.PanDeg -= steps
			}
		} else {
			panErr = fmt.Errorf("%w: pan turn: %w", ErrHardware, panErr)
		}
	}

	// Both axes are attempted even if the pan turn failed; a single-axis
	// failure is reported but the other axis is not rolled back.
	if tiltDelta != 0 {
		dir := DirectionUp
		if tiltDelta > 0 {
			dir = DirectionDown
		}
		steps := min(abs(tiltDelta), MaxStepSizeTilt)

		if tiltErr = a.drv.Turn(dir, steps); tiltErr == nil {
			if dir == DirectionDown {
				a.pos.TiltDeg += steps
			} else {
				a.pos.TiltDeg -= steps
			}
		} else {
			tiltErr = fmt.Errorf("%w: tilt turn: %w", ErrHardware, tiltErr)
		}
	}

	if panErr != nil || tiltErr != nil {
		return joinErrors(panErr, tiltErr)
	}

	return a.waitMotionIdleLocked()
}

// ContinuousMove starts motion at the given signed hardware velocities and
// arms an auto-stop timer when timeoutSec > 0. A zero timeout means the
// motion runs until Stop. Any previously armed timer is cancelled and
// joined before the new motion is issued, so at most one timer goroutine
// ever exists.
func (a *Adapter) ContinuousMove(panVel, tiltVel, timeoutSec int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return ErrNotInitialized
	}

	if a.continuousActive {
		a.log.Debug("replacing active continuous move")
		a.stopAllDirectionsLocked()
		a.continuousActive = false
	}
	a.cancelTimerLocked()

	if panVel != 0 {
		if err := a.drv.SetSpeed(AxisPan, abs(panVel)); err != nil {
			a.log.Warn("pan speed rejected", zap.Error(err))
		}
		dir := DirectionLeft
		if panVel > 0 {
			dir = DirectionRight
		}
		// Full-range step count models "keep moving until told to stop".
		if err := a.drv.Turn(dir, MaxPanDegrees); err != nil {
			a.log.Warn("continuous pan turn rejected",
				zap.Stringer("direction", dir), zap.Error(err))
		}
	}

	if tiltVel != 0 {
		if err := a.drv.SetSpeed(AxisTilt, abs(tiltVel)); err != nil {
			a.log.Warn("tilt speed rejected", zap.Error(err))
		}
		dir := DirectionUp
		if tiltVel > 0 {
			dir = DirectionDown
		}
		if err := a.drv.Turn(dir, MaxTiltDegrees); err != nil {
			a.log.Warn("continuous tilt turn rejected",
				zap.Stringer("direction", dir), zap.Error(err))
		}
	}

	if timeoutSec > 0 {
		a.timeoutSeconds = timeoutSec
		a.continuousActive = true

		t := &moveTimer{
			cancel: make(chan struct{}),
			done:   make(chan struct{}),
		}
		a.timer = t
		go a.runMoveTimer(t, time.Duration(timeoutSec)*time.Second)

		a.log.Info("ptz continuous move started",
			zap.Int("pan_vel", panVel), zap.Int("tilt_vel", tiltVel),
			zap.Int("timeout_s", timeoutSec))
	} else {
		a.log.Info("ptz continuous move started (no timeout)",
			zap.Int("pan_vel", panVel), zap.Int("tilt_vel", tiltVel))
	}

	return nil
}

// Stop halts all motion and disarms any auto-stop timer. Hardware stop
// failures are logged, not returned: a stop must be unconditionally safe
// to call repeatedly, including from Cleanup.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return ErrNotInitialized
	}

	a.log.Info("ptz stop all movement")
	a.stopAllDirectionsLocked()
	a.continuousActive = false
	a.cancelTimerLocked()

	return nil
}

// runMoveTimer is the auto-stop goroutine body. On timeout it stops all
// four directions unless the move was already cancelled or replaced; on
// cancellation it exits without touching the motors, because the caller
// owns the motion state at that point.
func (a *Adapter) runMoveTimer(t *moveTimer, timeout time.Duration) {
	defer close(t.done)

	a.log.Debug("continuous move timer armed", zap.Duration("timeout", timeout))

	select {
	case <-t.cancel:
		a.log.Debug("continuous move timer cancelled")
		return
	case <-time.After(timeout):
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// A cancellation may have raced the timeout; the caller wins.
	if !a.continuousActive || a.timer != t {
		a.log.Debug("continuous move timer fired after cancellation")
		return
	}

	a.log.Info("ptz continuous move timeout, stopping movement",
		zap.Int("timeout_s", a.timeoutSeconds))
	a.stopAllDirectionsLocked()
	a.continuousActive = false
	a.timer = nil
}

// cancelTimerLocked signals the timer goroutine and waits for it to exit.
// The adapter lock is released for the join: the goroutine may need the
// lock to finish, and joining while holding it would deadlock. Callers
// must expect other operations to have run during the gap.
func (a *Adapter) cancelTimerLocked() {
	t := a.timer
	if t == nil {
		return
	}
	a.timer = nil

	close(t.cancel)
	a.mu.Unlock()
	<-t.done
	a.mu.Lock()
}

// stopAllDirectionsLocked issues a hardware stop for every direction.
// Idempotent even when nothing is moving.
func (a *Adapter) stopAllDirectionsLocked() {
	for _, dir := range []Direction{DirectionLeft, DirectionRight, DirectionUp, DirectionDown} {
		if err := a.drv.TurnStop(dir); err != nil {
			a.log.Warn("hardware stop failed",
				zap.Stringer("direction", dir), zap.Error(err))
		}
	}
}

// waitMotionIdleLocked polls both axes until they report idle or the poll
// budget elapses. A status read error counts as still busy; only the
// budget turns it into a failure.
func (a *Adapter) waitMotionIdleLocked() error {
	deadline := time.Now().Add(a.pollBudget)

	for {
		h, herr := a.drv.Status(AxisPan)
		v, verr := a.drv.Status(AxisTilt)
		if herr == nil && verr == nil && h == StateIdle && v == StateIdle {
			return nil
		}

		if time.Now().After(deadline) {
			a.log.Warn("motion completion poll exceeded budget",
				zap.Duration("budget", a.pollBudget))
			return ErrTimeout
		}
		time.Sleep(a.pollInterval)
	}
}

func joinErrors(a, b error) error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return fmt.Errorf("%w; %w", a, b)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
