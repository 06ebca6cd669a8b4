package ptz

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type turnCall struct {
	dir   Direction
	steps int
}

// fakeDriver records every hardware call. The timer goroutine may call in
// concurrently, so all state is mutex-guarded.
type fakeDriver struct {
	mu sync.Mutex

	openErr   error
	moveErr   error
	turnErr   map[Direction]error
	stopErr   error
	statusErr error
	busy      bool

	openCalls    int
	closeCalls   int
	moves        []Position
	turns        []turnCall
	stops        []Direction
	speeds       map[Axis]int
	stepPosCalls int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		turnErr: make(map[Direction]error),
		speeds:  make(map[Axis]int),
	}
}

func (f *fakeDriver) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.openCalls++
	return nil
}

func (f *fakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeDriver) MoveToPosition(panDeg, tiltDeg int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moveErr != nil {
		return f.moveErr
	}
	f.moves = append(f.moves, Position{PanDeg: panDeg, TiltDeg: tiltDeg})
	return nil
}

func (f *fakeDriver) Turn(dir Direction, steps int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.turnErr[dir]; err != nil {
		return err
	}
	f.turns = append(f.turns, turnCall{dir: dir, steps: steps})
	return nil
}

func (f *fakeDriver) TurnStop(dir Direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, dir)
	return f.stopErr
}

func (f *fakeDriver) StepPosition(axis Axis) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stepPosCalls++
	return 0
}

func (f *fakeDriver) Status(axis Axis) (MotionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return StateBusy, f.statusErr
	}
	if f.busy {
		return StateBusy, nil
	}
	return StateIdle, nil
}

func (f *fakeDriver) SetSpeed(axis Axis, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speeds[axis] = value
	return nil
}

func (f *fakeDriver) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stops)
}

func newTestAdapter(t *testing.T, drv *fakeDriver) *Adapter {
	t.Helper()
	a := NewAdapter(drv, nil)
	// Keep completion polls short so failure paths stay fast.
	a.pollInterval = time.Millisecond
	a.pollBudget = 30 * time.Millisecond
	return a
}

func TestInitIdempotent(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)

	require.NoError(t, a.Init())
	require.NoError(t, a.Init())

	assert.Equal(t, 1, drv.openCalls)
	// The homing move-to-center runs exactly once.
	assert.Equal(t, []Position{{0, 0}}, drv.moves)
}

func TestInitOpenFailure(t *testing.T) {
	drv := newFakeDriver()
	drv.openErr = errors.New("device busy")
	a := newTestAdapter(t, drv)

	err := a.Init()
	require.ErrorIs(t, err, ErrHardware)

	// Still uninitialized; a later Init may succeed.
	_, err = a.Status()
	assert.ErrorIs(t, err, ErrNotInitialized)

	drv.openErr = nil
	require.NoError(t, a.Init())
}

func TestOperationsRequireInit(t *testing.T) {
	a := newTestAdapter(t, newFakeDriver())

	_, err := a.Status()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, a.AbsoluteMove(10, 10, 50), ErrNotInitialized)
	assert.ErrorIs(t, a.RelativeMove(10, 10, 50), ErrNotInitialized)
	assert.ErrorIs(t, a.ContinuousMove(50, 50, 1), ErrNotInitialized)
	assert.ErrorIs(t, a.Stop(), ErrNotInitialized)
}

func TestAbsoluteMoveClamps(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	require.NoError(t, a.AbsoluteMove(500, 500, 50))
	assert.Equal(t, Position{350, 130}, drv.moves[len(drv.moves)-1])

	require.NoError(t, a.AbsoluteMove(-500, -500, 50))
	assert.Equal(t, Position{-350, -130}, drv.moves[len(drv.moves)-1])

	pos, err := a.Status()
	require.NoError(t, err)
	assert.Equal(t, Position{-350, -130}, pos)
}

func TestAbsoluteMoveHardwareReject(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	drv.moveErr = errors.New("motor fault")
	err := a.AbsoluteMove(90, 45, 50)
	require.ErrorIs(t, err, ErrHardware)

	// Rejected moves leave the cached position untouched.
	pos, err := a.Status()
	require.NoError(t, err)
	assert.Equal(t, Position{0, 0}, pos)
}

func TestAbsoluteMoveTimeoutKeepsOptimisticPosition(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	drv.mu.Lock()
	drv.busy = true
	drv.mu.Unlock()

	err := a.AbsoluteMove(90, 45, 50)
	require.ErrorIs(t, err, ErrTimeout)

	// The cache was updated when the hardware accepted the command, even
	// though completion was never confirmed.
	pos, err := a.Status()
	require.NoError(t, err)
	assert.Equal(t, Position{90, 45}, pos)
}

func TestStatusIsCacheOnly(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	require.NoError(t, a.AbsoluteMove(90, 45, 50))

	pos, err := a.Status()
	require.NoError(t, err)
	assert.Equal(t, Position{90, 45}, pos)
	assert.Zero(t, drv.stepPosCalls)
}

func TestRelativeMoveStepClamp(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	// Pan delta beyond the motor step limit issues exactly one clamped turn.
	require.NoError(t, a.RelativeMove(100, 0, 50))
	require.Len(t, drv.turns, 1)
	assert.Equal(t, turnCall{DirectionLeft, 16}, drv.turns[0])

	pos, err := a.Status()
	require.NoError(t, err)
	assert.Equal(t, 16, pos.PanDeg)

	require.NoError(t, a.RelativeMove(-100, 0, 50))
	assert.Equal(t, turnCall{DirectionRight, 16}, drv.turns[1])

	require.NoError(t, a.RelativeMove(0, 50, 50))
	assert.Equal(t, turnCall{DirectionDown, 8}, drv.turns[2])

	require.NoError(t, a.RelativeMove(0, -3, 50))
	assert.Equal(t, turnCall{DirectionUp, 3}, drv.turns[3])

	pos, err = a.Status()
	require.NoError(t, err)
	assert.Equal(t, Position{0, 5}, pos)
}

func TestRelativeMoveSingleAxisFailure(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	drv.turnErr[DirectionLeft] = errors.New("pan stalled")

	err := a.RelativeMove(10, 10, 50)
	require.ErrorIs(t, err, ErrHardware)

	// Tilt moved and its cache advanced; pan is untouched.
	pos, serr := a.Status()
	require.NoError(t, serr)
	assert.Equal(t, Position{0, 8}, pos)
	require.Len(t, drv.turns, 1)
	assert.Equal(t, turnCall{DirectionDown, 8}, drv.turns[0])
}

func TestContinuousMoveDirections(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	require.NoError(t, a.ContinuousMove(80, 0, 0))
	require.Len(t, drv.turns, 1)
	assert.Equal(t, turnCall{DirectionRight, 350}, drv.turns[0])
	assert.Equal(t, 80, drv.speeds[AxisPan])
	assert.False(t, a.ContinuousActive(), "no timer without a timeout")

	require.NoError(t, a.ContinuousMove(-80, -60, 0))
	assert.Contains(t, drv.turns, turnCall{DirectionLeft, 350})
	assert.Contains(t, drv.turns, turnCall{DirectionUp, 130})
	assert.Equal(t, 60, drv.speeds[AxisTilt])
}

func TestContinuousMoveTimeoutAutoStop(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	require.NoError(t, a.ContinuousMove(50, 50, 1))
	assert.True(t, a.ContinuousActive())

	time.Sleep(1200 * time.Millisecond)

	assert.False(t, a.ContinuousActive())
	// All four directions stopped exactly once.
	assert.Equal(t, 4, drv.stopCount())
}

func TestContinuousMoveReplacementKeepsSingleTimer(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	require.NoError(t, a.ContinuousMove(50, 0, 5))
	require.NoError(t, a.ContinuousMove(0, 50, 1))
	assert.True(t, a.ContinuousActive())

	time.Sleep(1300 * time.Millisecond)

	// One stop batch from the replacement, one from the second timer
	// firing. The first timer was joined before it could fire.
	assert.False(t, a.ContinuousActive())
	assert.Equal(t, 8, drv.stopCount())
}

func TestStopCancelsTimerSynchronously(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	require.NoError(t, a.ContinuousMove(50, 0, 1))
	require.NoError(t, a.Stop())

	assert.False(t, a.ContinuousActive())
	assert.Equal(t, 4, drv.stopCount())

	// The timer is gone by the time Stop returns; waiting past the
	// original deadline must not produce another stop batch.
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, 4, drv.stopCount())
}

func TestStopSwallowsHardwareErrors(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	drv.stopErr = errors.New("stop rejected")
	assert.NoError(t, a.Stop())
}

func TestStopIdempotent(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	require.NoError(t, a.Stop())
	require.NoError(t, a.Stop())
	assert.Equal(t, 8, drv.stopCount())
}

func TestCleanupStopsContinuousAndAllowsReinit(t *testing.T) {
	drv := newFakeDriver()
	a := newTestAdapter(t, drv)
	require.NoError(t, a.Init())

	require.NoError(t, a.ContinuousMove(50, 0, 5))
	a.Cleanup()

	assert.Equal(t, 1, drv.closeCalls)
	assert.Equal(t, 4, drv.stopCount())
	assert.False(t, a.ContinuousActive())

	_, err := a.Status()
	assert.ErrorIs(t, err, ErrNotInitialized)

	// Cleanup is idempotent and the adapter can come back.
	a.Cleanup()
	assert.Equal(t, 1, drv.closeCalls)
	require.NoError(t, a.Init())
}
