package onvif

import "encoding/xml"

// SOAP and ONVIF schema namespaces.
const (
	nsEnvelope = "http://www.w3.org/2003/05/soap-envelope"
	nsSchema   = "http://www.onvif.org/ver10/schema"
	nsPTZ      = "http://www.onvif.org/ver20/ptz/wsdl"
	nsDevice   = "http://www.onvif.org/ver10/device/wsdl"
	nsError    = "http://www.onvif.org/ver10/error"
)

// Coordinate space URIs advertised by the node.
const (
	spaceAbsolutePanTilt   = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/PositionGenericSpace"
	spaceRelativePanTilt   = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/TranslationGenericSpace"
	spaceContinuousPanTilt = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/VelocityGenericSpace"
	spaceGenericSpeed      = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/GenericSpeedSpace"
)

// requestEnvelope captures the raw body of an inbound SOAP request; the
// action element inside is sniffed and decoded separately.
type requestEnvelope struct {
	XMLName xml.Name    `xml:"Envelope"`
	Body    requestBody `xml:"Body"`
}

type requestBody struct {
	Inner []byte `xml:",innerxml"`
}

// envelope is the outbound SOAP envelope. Payload must be a struct whose
// XMLName carries a literal prefix (e.g. tptz:GetStatusResponse).
type envelope struct {
	XMLName xml.Name `xml:"s:Envelope"`
	NSEnv   string   `xml:"xmlns:s,attr"`
	NSTT    string   `xml:"xmlns:tt,attr,omitempty"`
	NSPTZ   string   `xml:"xmlns:tptz,attr,omitempty"`
	NSDev   string   `xml:"xmlns:tds,attr,omitempty"`
	NSErr   string   `xml:"xmlns:ter,attr,omitempty"`
	Body    envelopeBody
}

type envelopeBody struct {
	XMLName xml.Name `xml:"s:Body"`
	Payload any
}

// Vector2D is an ONVIF pan/tilt vector in a normalized space.
type Vector2D struct {
	X     float32 `xml:"x,attr"`
	Y     float32 `xml:"y,attr"`
	Space string  `xml:"space,attr,omitempty"`
}

// Vector1D is an ONVIF zoom vector; always zero on this device.
type Vector1D struct {
	X     float32 `xml:"x,attr"`
	Space string  `xml:"space,attr,omitempty"`
}

// PTZVector is a position or translation with optional zoom.
type PTZVector struct {
	PanTilt *Vector2D `xml:"PanTilt"`
	Zoom    *Vector1D `xml:"Zoom"`
}

// PTZSpeed carries per-request speed or velocity.
type PTZSpeed struct {
	PanTilt *Vector2D `xml:"PanTilt"`
	Zoom    *Vector1D `xml:"Zoom"`
}

// Range is a min/max pair inside a space description.
type Range struct {
	Min float32 `xml:"tt:Min"`
	Max float32 `xml:"tt:Max"`
}

// Space2D describes a two-dimensional coordinate space.
type Space2D struct {
	URI    string `xml:"tt:URI"`
	XRange Range  `xml:"tt:XRange"`
	YRange Range  `xml:"tt:YRange"`
}

// Space1D describes a one-dimensional coordinate space.
type Space1D struct {
	URI    string `xml:"tt:URI"`
	XRange Range  `xml:"tt:XRange"`
}

/* ------------------------------- requests ------------------------------- */

type absoluteMoveRequest struct {
	XMLName      xml.Name  `xml:"AbsoluteMove"`
	ProfileToken string    `xml:"ProfileToken"`
	Position     PTZVector `xml:"Position"`
	Speed        *PTZSpeed `xml:"Speed"`
}

type relativeMoveRequest struct {
	XMLName      xml.Name  `xml:"RelativeMove"`
	ProfileToken string    `xml:"ProfileToken"`
	Translation  PTZVector `xml:"Translation"`
	Speed        *PTZSpeed `xml:"Speed"`
}

type continuousMoveRequest struct {
	XMLName      xml.Name `xml:"ContinuousMove"`
	ProfileToken string   `xml:"ProfileToken"`
	Velocity     PTZSpeed `xml:"Velocity"`
	Timeout      string   `xml:"Timeout"`
}

type stopRequest struct {
	XMLName      xml.Name `xml:"Stop"`
	ProfileToken string   `xml:"ProfileToken"`
	PanTilt      *bool    `xml:"PanTilt"`
	Zoom         *bool    `xml:"Zoom"`
}

type getNodeRequest struct {
	XMLName   xml.Name `xml:"GetNode"`
	NodeToken string   `xml:"NodeToken"`
}

type getConfigurationRequest struct {
	XMLName               xml.Name `xml:"GetConfiguration"`
	PTZConfigurationToken string   `xml:"PTZConfigurationToken"`
}

type setPresetRequest struct {
	XMLName      xml.Name `xml:"SetPreset"`
	ProfileToken string   `xml:"ProfileToken"`
	PresetName   string   `xml:"PresetName"`
}

type gotoPresetRequest struct {
	XMLName      xml.Name  `xml:"GotoPreset"`
	ProfileToken string    `xml:"ProfileToken"`
	PresetToken  string    `xml:"PresetToken"`
	Speed        *PTZSpeed `xml:"Speed"`
}

type removePresetRequest struct {
	XMLName      xml.Name `xml:"RemovePreset"`
	ProfileToken string   `xml:"ProfileToken"`
	PresetToken  string   `xml:"PresetToken"`
}

type gotoHomeRequest struct {
	XMLName      xml.Name  `xml:"GotoHomePosition"`
	ProfileToken string    `xml:"ProfileToken"`
	Speed        *PTZSpeed `xml:"Speed"`
}

/* ------------------------------- responses ------------------------------ */

type absoluteMoveResponse struct {
	XMLName xml.Name `xml:"tptz:AbsoluteMoveResponse"`
}

type relativeMoveResponse struct {
	XMLName xml.Name `xml:"tptz:RelativeMoveResponse"`
}

type continuousMoveResponse struct {
	XMLName xml.Name `xml:"tptz:ContinuousMoveResponse"`
}

type stopResponse struct {
	XMLName xml.Name `xml:"tptz:StopResponse"`
}

type removePresetResponse struct {
	XMLName xml.Name `xml:"tptz:RemovePresetResponse"`
}

type gotoPresetResponse struct {
	XMLName xml.Name `xml:"tptz:GotoPresetResponse"`
}

type gotoHomeResponse struct {
	XMLName xml.Name `xml:"tptz:GotoHomePositionResponse"`
}

type setPresetResponse struct {
	XMLName     xml.Name `xml:"tptz:SetPresetResponse"`
	PresetToken string   `xml:"tptz:PresetToken"`
}

type getStatusResponse struct {
	XMLName   xml.Name  `xml:"tptz:GetStatusResponse"`
	PTZStatus ptzStatus `xml:"tptz:PTZStatus"`
}

type ptzStatus struct {
	Position   statusVector `xml:"tt:Position"`
	MoveStatus moveStatus   `xml:"tt:MoveStatus"`
	UtcTime    string       `xml:"tt:UtcTime"`
}

type statusVector struct {
	PanTilt Vector2D `xml:"tt:PanTilt"`
	Zoom    Vector1D `xml:"tt:Zoom"`
}

type moveStatus struct {
	PanTilt string `xml:"tt:PanTilt"`
	Zoom    string `xml:"tt:Zoom"`
}

type getNodesResponse struct {
	XMLName xml.Name  `xml:"tptz:GetNodesResponse"`
	PTZNode []ptzNode `xml:"tptz:PTZNode"`
}

type getNodeResponse struct {
	XMLName xml.Name `xml:"tptz:GetNodeResponse"`
	PTZNode ptzNode  `xml:"tptz:PTZNode"`
}

type ptzNode struct {
	Token                  string    `xml:"token,attr"`
	Name                   string    `xml:"tt:Name"`
	SupportedPTZSpaces     ptzSpaces `xml:"tt:SupportedPTZSpaces"`
	MaximumNumberOfPresets int       `xml:"tt:MaximumNumberOfPresets"`
	HomeSupported          bool      `xml:"tt:HomeSupported"`
}

type ptzSpaces struct {
	AbsolutePanTiltPositionSpace    *Space2D `xml:"tt:AbsolutePanTiltPositionSpace"`
	RelativePanTiltTranslationSpace *Space2D `xml:"tt:RelativePanTiltTranslationSpace"`
	ContinuousPanTiltVelocitySpace  *Space2D `xml:"tt:ContinuousPanTiltVelocitySpace"`
	PanTiltSpeedSpace               *Space1D `xml:"tt:PanTiltSpeedSpace"`
}

type getConfigurationsResponse struct {
	XMLName          xml.Name           `xml:"tptz:GetConfigurationsResponse"`
	PTZConfiguration []ptzConfiguration `xml:"tptz:PTZConfiguration"`
}

type getConfigurationResponse struct {
	XMLName          xml.Name         `xml:"tptz:GetConfigurationResponse"`
	PTZConfiguration ptzConfiguration `xml:"tptz:PTZConfiguration"`
}

type ptzConfiguration struct {
	Token             string         `xml:"token,attr"`
	Name              string         `xml:"tt:Name"`
	UseCount          int            `xml:"tt:UseCount"`
	NodeToken         string         `xml:"tt:NodeToken"`
	DefaultPTZSpeed   statusVector   `xml:"tt:DefaultPTZSpeed"`
	DefaultPTZTimeout string         `xml:"tt:DefaultPTZTimeout"`
	PanTiltLimits     *panTiltLimits `xml:"tt:PanTiltLimits"`
}

type panTiltLimits struct {
	Range Space2D `xml:"tt:Range"`
}

type getPresetsResponse struct {
	XMLName xml.Name    `xml:"tptz:GetPresetsResponse"`
	Preset  []presetXML `xml:"tptz:Preset"`
}

type presetXML struct {
	Token       string       `xml:"token,attr"`
	Name        string       `xml:"tt:Name"`
	PTZPosition statusVector `xml:"tt:PTZPosition"`
}
