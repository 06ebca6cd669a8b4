// Package protocol defines the JSON message envelope used on the
// maintenance WebSocket. Installers use it to nudge the head and watch the
// live position without speaking SOAP.
package protocol

import "encoding/json"

// Message types
const (
	TypePing       = "ping"
	TypePong       = "pong"
	TypeStatus     = "status"
	TypePTZCommand = "ptz_command"
	TypePTZStop    = "ptz_stop"
	TypePTZPreset  = "ptz_preset"
	TypeError      = "error"
)

// Error codes
const (
	ErrPTZ            = "PTZ_ERROR"
	ErrPreset         = "PRESET_ERROR"
	ErrInvalidMessage = "INVALID_MESSAGE"
)

// Preset actions
const (
	PresetSave   = "save"
	PresetRecall = "recall"
	PresetRemove = "remove"
)

// Message is the base envelope for all WebSocket messages
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PingPayload for ping messages
type PingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// PongPayload for pong messages
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"`
	ServerTimestamp int64 `json:"server_timestamp"`
}

// StatusPayload reports the head position and streaming state
type StatusPayload struct {
	PanDeg           int  `json:"pan_deg"`
	TiltDeg          int  `json:"tilt_deg"`
	ContinuousActive bool `json:"continuous_active"`
	StreamConnected  bool `json:"stream_connected"`
}

// PTZCommandPayload carries normalized continuous velocities in [-1, 1].
// Zero on both axes stops the head.
type PTZCommandPayload struct {
	Pan  float64 `json:"pan"`
	Tilt float64 `json:"tilt"`
}

// PTZPresetPayload for preset save/recall/remove
type PTZPresetPayload struct {
	Action string `json:"action"`
	Token  string `json:"token,omitempty"`
	Name   string `json:"name,omitempty"`
}

// ErrorPayload for error messages
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage creates a new message with the given type and payload
func NewMessage(msgType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:    msgType,
		Payload: data,
	}, nil
}

// ParsePayload unmarshals the payload into the given struct
func (m *Message) ParsePayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}
