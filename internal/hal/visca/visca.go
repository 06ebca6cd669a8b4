// Package visca implements the PTZ motor driver interface over VISCA,
// either raw VISCA on TCP or VISCA-over-IP framing on UDP. The link is
// fire-and-forget: commands are written with a short deadline and inquiry
// replies are not read, so step positions and busy status are tracked
// locally from the commands issued.
package visca

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"onvif-camd/internal/ptz"
)

const (
	// Motor gearbox calibration: VISCA position units per hardware degree.
	unitsPerDegree = 10

	// Estimated settle time per step used for the emulated busy status.
	stepSettleTime = 10 * time.Millisecond

	writeDeadline = 10 * time.Millisecond
)

// Config for the VISCA driver.
type Config struct {
	// Address of the motor controller, e.g. "127.0.0.1:52381".
	Address string
	// Protocol is "udp" (VISCA-over-IP framing) or "tcp" (raw VISCA).
	Protocol string
}

// Driver speaks VISCA to the pan/tilt motor controller and satisfies
// ptz.Driver.
type Driver struct {
	cfg Config

	mu     sync.Mutex
	conn   net.Conn
	addr   int    // camera address (1-7)
	seqNum uint32 // sequence number for VISCA over IP

	// Locally tracked motor state; the link carries no readable feedback.
	pan      int
	tilt     int
	busyPan  time.Time
	busyTilt time.Time
	speeds   map[ptz.Axis]int
}

// New creates a VISCA driver. The connection is made by Open.
func New(cfg Config) (*Driver, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("visca: controller address is required")
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Protocol != "udp" && cfg.Protocol != "tcp" {
		return nil, fmt.Errorf("visca: unsupported protocol: %s", cfg.Protocol)
	}

	return &Driver{
		cfg:    cfg,
		addr:   1,
		speeds: make(map[ptz.Axis]int),
	}, nil
}

// Open dials the motor controller.
func (d *Driver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return fmt.Errorf("visca: session already open")
	}

	conn, err := net.DialTimeout(d.cfg.Protocol, d.cfg.Address, 5*time.Second)
	if err != nil {
		return fmt.Errorf("visca: connect: %w", err)
	}

	d.conn = conn
	d.seqNum = 0
	return nil
}

// Close tears down the motor controller connection.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// MoveToPosition issues a VISCA absolute position command for both axes.
func (d *Driver) MoveToPosition(panDeg, tiltDeg int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	panSpeed, tiltSpeed := d.driveSpeedsLocked()

	// Absolute position: 01 06 02 VV WW 0Y 0Y 0Y 0Y 0Z 0Z 0Z 0Z
	payload := []byte{0x01, 0x06, 0x02, panSpeed, tiltSpeed}
	payload = append(payload, positionNibbles(panDeg*unitsPerDegree)...)
	payload = append(payload, positionNibbles(tiltDeg*unitsPerDegree)...)

	if err := d.sendLocked(payload); err != nil {
		return err
	}

	now := time.Now()
	d.busyPan = now.Add(time.Duration(absInt(panDeg-d.pan)) * stepSettleTime)
	d.busyTilt = now.Add(time.Duration(absInt(tiltDeg-d.tilt)) * stepSettleTime)
	d.pan = panDeg
	d.tilt = tiltDeg
	return nil
}

// Turn issues a VISCA relative position command stepping one axis in the
// given direction. Left and down are the positive directions, matching the
// motor convention the adapter tracks positions in.
func (d *Driver) Turn(dir ptz.Direction, steps int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var panOff, tiltOff int
	switch dir {
	case ptz.DirectionLeft:
		panOff = steps
	case ptz.DirectionRight:
		panOff = -steps
	case ptz.DirectionDown:
		tiltOff = steps
	case ptz.DirectionUp:
		tiltOff = -steps
	}

	panSpeed, tiltSpeed := d.driveSpeedsLocked()

	// Relative position: 01 06 03 VV WW 0Y 0Y 0Y 0Y 0Z 0Z 0Z 0Z
	payload := []byte{0x01, 0x06, 0x03, panSpeed, tiltSpeed}
	payload = append(payload, positionNibbles(panOff*unitsPerDegree)...)
	payload = append(payload, positionNibbles(tiltOff*unitsPerDegree)...)

	if err := d.sendLocked(payload); err != nil {
		return err
	}

	now := time.Now()
	if panOff != 0 {
		d.pan += panOff
		d.busyPan = now.Add(time.Duration(steps) * stepSettleTime)
	}
	if tiltOff != 0 {
		d.tilt += tiltOff
		d.busyTilt = now.Add(time.Duration(steps) * stepSettleTime)
	}
	return nil
}

// TurnStop issues a pan-tilt drive stop for the direction's axis.
func (d *Driver) TurnStop(dir ptz.Direction) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Drive command with 03 (stop) on the addressed axis and the other
	// axis left unchanged (03 as well; the motor ignores a stop on an
	// idle axis).
	payload := []byte{0x01, 0x06, 0x01, 0x01, 0x01, 0x03, 0x03}

	if err := d.sendLocked(payload); err != nil {
		return err
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

// StepPosition returns the locally tracked step position of an axis.
func (d *Driver) StepPosition(axis ptz.Axis) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if axis == ptz.AxisPan {
		return d.pan
	}
	return d.tilt
}

// Status reports an axis busy until its estimated settle deadline passes.
func (d *Driver) Status(axis ptz.Axis) (ptz.MotionState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return ptz.StateBusy, fmt.Errorf("visca: session not open")
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

// SetSpeed stores the per-axis speed; it is folded into the next motion
// command's speed bytes.
func (d *Driver) SetSpeed(axis ptz.Axis, value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speeds[axis] = value
	return nil
}

// driveSpeedsLocked converts the stored driver speeds [15, 100] into VISCA
// speed bytes (pan 0x01-0x18, tilt 0x01-0x14).
func (d *Driver) driveSpeedsLocked() (pan, tilt byte) {
	return viscaSpeed(d.speeds[ptz.AxisPan], 0x18), viscaSpeed(d.speeds[ptz.AxisTilt], 0x14)
}

func viscaSpeed(v int, max byte) byte {
	if v <= 15 {
		return 0x01
	}
	if v > 100 {
		v = 100
	}
	s := 1 + (v-15)*(int(max)-1)/85
	return byte(s)
}

// sendLocked frames and writes a command without waiting for a response.
func (d *Driver) sendLocked(payload []byte) error {
	if d.conn == nil {
		return fmt.Errorf("visca: session not open")
	}

	packet := d.framePayload(payload)

	// Short write deadline - don't block the motion path on the link
	d.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if _, err := d.conn.Write(packet); err != nil {
		return fmt.Errorf("visca: write: %w", err)
	}
	return nil
}

// framePayload wraps a raw command in VISCA addressing and, for UDP, in
// VISCA-over-IP framing.
func (d *Driver) framePayload(payload []byte) []byte {
	// VISCA command format: [address byte] [payload...] [terminator]
	cmd := make([]byte, 0, len(payload)+2)
	cmd = append(cmd, byte(0x80|d.addr))
	cmd = append(cmd, payload...)
	cmd = append(cmd, 0xFF)

	if d.cfg.Protocol != "udp" {
		return cmd
	}

	// VISCA over IP header (8 bytes):
	// Bytes 0-1: message type (0x01 0x00 for command)
	// Bytes 2-3: payload length (big endian)
	// Bytes 4-7: sequence number (big endian)
	header := make([]byte, 8)
	header[0] = 0x01
	binary.BigEndian.PutUint16(header[2:4], uint16(len(cmd)))
	binary.BigEndian.PutUint32(header[4:8], d.seqNum)
	d.seqNum++

	return append(header, cmd...)
}

// positionNibbles encodes a signed 16-bit position as four low nibbles.
func positionNibbles(v int) []byte {
	u := uint16(int16(v))
	return []byte{
		byte(u >> 12 & 0x0F),
		byte(u >> 8 & 0x0F),
		byte(u >> 4 & 0x0F),
		byte(u & 0x0F),
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
