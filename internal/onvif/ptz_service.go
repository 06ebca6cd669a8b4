// Package onvif implements the SOAP service facade: it decodes ONVIF
// requests, converts normalized coordinates and speeds into hardware units
// and hands the motion commands to the PTZ adapter.
package onvif

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"onvif-camd/internal/ptz"
)

const (
	nodeToken    = "PTZNode0"
	configToken  = "PTZConfig0"
	profileToken = "Profile0"

	// Driver speed used when a request carries no Speed element.
	defaultCommandSpeed = 50

	// Continuous moves without a usable timeout are stopped after this
	// many seconds rather than running away.
	defaultContinuousTimeoutSec = 10
)

// PTZService handles the PTZ SOAP actions over HTTP.
type PTZService struct {
	adapter *ptz.Adapter
	presets *PresetStore
	log     *zap.Logger
}

// NewPTZService creates the facade around an adapter and a preset store.
func NewPTZService(adapter *ptz.Adapter, presets *PresetStore, log *zap.Logger) *PTZService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PTZService{adapter: adapter, presets: presets, log: log}
}

// ServeHTTP dispatches a SOAP request to the matching PTZ action.
func (s *PTZService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	action, body, err := decodeRequest(r)
	if err != nil {
		writeFault(w, err)
		return
	}

	payload, err := s.dispatch(action, body)
	if err != nil {
		s.log.Debug("ptz action failed", zap.String("action", action), zap.Error(err))
		writeFault(w, err)
		return
	}
	writeResponse(w, payload)
}

func (s *PTZService) dispatch(action string, body []byte) (any, error) {
	switch action {
	case "GetNodes":
		return getNodesResponse{PTZNode: []ptzNode{deviceNode()}}, nil
	case "GetNode":
		return s.getNode(body)
	case "GetConfigurations":
		return getConfigurationsResponse{PTZConfiguration: []ptzConfiguration{deviceConfiguration()}}, nil
	case "GetConfiguration":
		return s.getConfiguration(body)
	case "GetStatus":
		return s.getStatus()
	case "AbsoluteMove":
		return s.absoluteMove(body)
	case "RelativeMove":
		return s.relativeMove(body)
	case "ContinuousMove":
		return s.continuousMove(body)
	case "Stop":
		return s.stop(body)
	case "GetPresets":
		return s.getPresets()
	case "SetPreset":
		return s.setPreset(body)
	case "GotoPreset":
		return s.gotoPreset(body)
	case "RemovePreset":
		return s.removePreset(body)
	case "GotoHomePosition":
		return s.gotoHome(body)
	default:
		// Includes SetHomePosition: the head has a fixed home at center.
		return nil, errActionNotSupported
	}
}

func (s *PTZService) getNode(body []byte) (any, error) {
	var req getNodeRequest
	if err := decodeAction(body, &req); err != nil {
		return nil, err
	}
	if req.NodeToken != nodeToken {
		return nil, errUnknownToken
	}
	return getNodeResponse{PTZNode: deviceNode()}, nil
}

func (s *PTZService) getConfiguration(body []byte) (any, error) {
	var req getConfigurationRequest
	if err := decodeAction(body, &req); err != nil {
		return nil, err
	}
	if req.PTZConfigurationToken != configToken {
		return nil, errUnknownToken
	}
	return getConfigurationResponse{PTZConfiguration: deviceConfiguration()}, nil
}

func (s *PTZService) getStatus() (any, error) {
	pos, err := s.adapter.Status()
	if err != nil {
		return nil, err
	}

	return getStatusResponse{PTZStatus: ptzStatus{
		Position: statusVector{
			PanTilt: Vector2D{
				X:     ptz.DegreesToPan(pos.PanDeg),
				Y:     ptz.DegreesToTilt(pos.TiltDeg),
				Space: spaceAbsolutePanTilt,
			},
			Zoom: Vector1D{X: 0},
		},
		MoveStatus: moveStatus{PanTilt: "IDLE", Zoom: "IDLE"},
		UtcTime:    time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}}, nil
}

func (s *PTZService) absoluteMove(body []byte) (any, error) {
	var req absoluteMoveRequest
	if err := decodeAction(body, &req); err != nil {
		return nil, err
	}
	if req.Position.PanTilt == nil {
		return nil, errMalformedRequest
	}

	pan := ptz.PanToDegrees(req.Position.PanTilt.X)
	tilt := ptz.TiltToDegrees(req.Position.PanTilt.Y)

	if err := s.adapter.AbsoluteMove(pan, tilt, requestSpeed(req.Speed)); err != nil {
		return nil, err
	}
	return absoluteMoveResponse{}, nil
}

func (s *PTZService) relativeMove(body []byte) (any, error) {
	var req relativeMoveRequest
	if err := decodeAction(body, &req); err != nil {
		return nil, err
	}
	if req.Translation.PanTilt == nil {
		return nil, errMalformedRequest
	}

	panDelta := ptz.PanToDegrees(req.Translation.PanTilt.X)
	tiltDelta := ptz.TiltToDegrees(req.Translation.PanTilt.Y)

	if err := s.adapter.RelativeMove(panDelta, tiltDelta, requestSpeed(req.Speed)); err != nil {
		return nil, err
	}
	return relativeMoveResponse{}, nil
}

func (s *PTZService) continuousMove(body []byte) (any, error) {
	var req continuousMoveRequest
	if err := decodeAction(body, &req); err != nil {
		return nil, err
	}

	var panVel, tiltVel int
	if pt := req.Velocity.PanTilt; pt != nil {
		panVel = signedHardwareVelocity(pt.X)
		tiltVel = signedHardwareVelocity(pt.Y)
	}

	timeoutSec, err := parseTimeoutSeconds(req.Timeout)
	if err != nil {
		return nil, err
	}
	if timeoutSec <= 0 {
		timeoutSec = defaultContinuousTimeoutSec
	}

	if err := s.adapter.ContinuousMove(panVel, tiltVel, timeoutSec); err != nil {
		return nil, err
	}
	return continuousMoveResponse{}, nil
}

func (s *PTZService) stop(body []byte) (any, error) {
	var req stopRequest
	if err := decodeAction(body, &req); err != nil {
		return nil, err
	}

	// PanTilt defaults to true; a zoom-only stop is a no-op here.
	if req.PanTilt == nil || *req.PanTilt {
		if err := s.adapter.Stop(); err != nil {
			return nil, err
		}
	}
	return stopResponse{}, nil
}

func (s *PTZService) getPresets() (any, error) {
	if _, err := s.adapter.Status(); err != nil {
		return nil, err
	}

	all := s.presets.All()
	out := make([]presetXML, 0, len(all))
	for _, p := range all {
		out = append(out, presetXML{
			Token: p.Token,
			Name:  p.Name,
			PTZPosition: statusVector{
				PanTilt: Vector2D{X: p.X, Y: p.Y, Space: spaceAbsolutePanTilt},
				Zoom:    Vector1D{X: 0},
			},
		})
	}
	return getPresetsResponse{Preset: out}, nil
}

func (s *PTZService) setPreset(body []byte) (any, error) {
	var req setPresetRequest
	if err := decodeAction(body, &req); err != nil {
		return nil, err
	}

	pos, err := s.adapter.Status()
	if err != nil {
		return nil, err
	}

	name := req.PresetName
	if name == "" {
		name = "Preset"
	}

	token, err := s.presets.Set(name, ptz.DegreesToPan(pos.PanDeg), ptz.DegreesToTilt(pos.TiltDeg))
	if err != nil {
		return nil, err
	}

	s.log.Info("preset stored", zap.String("token", token), zap.String("name", name))
	return setPresetResponse{PresetToken: token}, nil
}

func (s *PTZService) gotoPreset(body []byte) (any, error) {
	var req gotoPresetRequest
	if err := decodeAction(body, &req); err != nil {
		return nil, err
	}

	preset, err := s.presets.Get(req.PresetToken)
	if err != nil {
		return nil, err
	}

	pan := ptz.PanToDegrees(preset.X)
	tilt := ptz.TiltToDegrees(preset.Y)
	if err := s.adapter.AbsoluteMove(pan, tilt, requestSpeed(req.Speed)); err != nil {
		return nil, err
	}
	return gotoPresetResponse{}, nil
}

func (s *PTZService) removePreset(body []byte) (any, error) {
	var req removePresetRequest
	if err := decodeAction(body, &req); err != nil {
		return nil, err
	}
	if err := s.presets.Remove(req.PresetToken); err != nil {
		return nil, err
	}
	return removePresetResponse{}, nil
}

func (s *PTZService) gotoHome(body []byte) (any, error) {
	var req gotoHomeRequest
	if err := decodeAction(body, &req); err != nil {
		return nil, err
	}
	if err := s.adapter.AbsoluteMove(0, 0, requestSpeed(req.Speed)); err != nil {
		return nil, err
	}
	return gotoHomeResponse{}, nil
}

// requestSpeed folds an optional Speed element into one driver speed.
func requestSpeed(speed *PTZSpeed) int {
	if speed == nil || speed.PanTilt == nil {
		return defaultCommandSpeed
	}
	return ptz.HardwareSpeed(ptz.CommandSpeed(speed.PanTilt.X, speed.PanTilt.Y))
}

// signedHardwareVelocity maps a normalized velocity onto the signed driver
// speed range; zero stays zero so the axis is not driven.
func signedHardwareVelocity(v float32) int {
	if v == 0 {
		return 0
	}
	speed := ptz.HardwareSpeed(v)
	if v < 0 {
		return -speed
	}
	return speed
}

// deviceNode is the static PTZ node metadata: generic pan/tilt spaces, no
// zoom spaces (the device has no zoom hardware), ten presets, fixed home.
func deviceNode() ptzNode {
	return ptzNode{
		Token: nodeToken,
		Name:  "PTZ Node",
		SupportedPTZSpaces: ptzSpaces{
			AbsolutePanTiltPositionSpace: &Space2D{
				URI:    spaceAbsolutePanTilt,
				XRange: Range{Min: -180, Max: 180},
				YRange: Range{Min: -90, Max: 90},
			},
			RelativePanTiltTranslationSpace: &Space2D{
				URI:    spaceRelativePanTilt,
				XRange: Range{Min: -180, Max: 180},
				YRange: Range{Min: -90, Max: 90},
			},
			ContinuousPanTiltVelocitySpace: &Space2D{
				URI:    spaceContinuousPanTilt,
				XRange: Range{Min: -1, Max: 1},
				YRange: Range{Min: -1, Max: 1},
			},
			PanTiltSpeedSpace: &Space1D{
				URI:    spaceGenericSpeed,
				XRange: Range{Min: 0, Max: 1},
			},
		},
		MaximumNumberOfPresets: maxPresets,
		HomeSupported:          true,
	}
}

func deviceConfiguration() ptzConfiguration {
	return ptzConfiguration{
		Token:     configToken,
		Name:      "PTZ Configuration",
		UseCount:  1,
		NodeToken: nodeToken,
		DefaultPTZSpeed: statusVector{
			PanTilt: Vector2D{X: 0.5, Y: 0.5},
			Zoom:    Vector1D{X: 0},
		},
		DefaultPTZTimeout: "PT10S",
		PanTiltLimits: &panTiltLimits{
			Range: Space2D{
				URI:    spaceAbsolutePanTilt,
				XRange: Range{Min: -1, Max: 1},
				YRange: Range{Min: -1, Max: 1},
			},
		},
	}
}
