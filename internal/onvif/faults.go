package onvif

import (
	"encoding/xml"
	"errors"
	"net/http"

	"onvif-camd/internal/ptz"
)

// soapFault is a SOAP 1.2 fault with an ONVIF subcode.
type soapFault struct {
	XMLName xml.Name    `xml:"s:Fault"`
	Code    faultCode   `xml:"s:Code"`
	Reason  faultReason `xml:"s:Reason"`
}

type faultCode struct {
	Value   string        `xml:"s:Value"`
	Subcode *faultSubcode `xml:"s:Subcode"`
}

type faultSubcode struct {
	Value string `xml:"s:Value"`
}

type faultReason struct {
	Text faultText `xml:"s:Text"`
}

type faultText struct {
	Lang string `xml:"xml:lang,attr"`
	Text string `xml:",chardata"`
}

// errActionNotSupported marks SOAP actions this service does not implement.
var errActionNotSupported = errors.New("onvif: action not supported")

// errMalformedRequest marks requests that could not be decoded.
var errMalformedRequest = errors.New("onvif: malformed request")

// errUnknownToken marks references to node or configuration tokens this
// device does not have.
var errUnknownToken = errors.New("onvif: unknown token")

// faultFor maps a service error onto SOAP fault code, ONVIF subcode and
// HTTP status. Unknown errors fall through to a generic receiver fault.
func faultFor(err error) (fault soapFault, status int) {
	code, subcode, httpStatus := "s:Receiver", "ter:Action", http.StatusInternalServerError

	switch {
	case errors.Is(err, errMalformedRequest):
		code, subcode, httpStatus = "s:Sender", "ter:WellFormed", http.StatusBadRequest
	case errors.Is(err, errActionNotSupported):
		code, subcode, httpStatus = "s:Receiver", "ter:ActionNotSupported", http.StatusBadRequest
	case errors.Is(err, ptz.ErrPresetNotFound), errors.Is(err, errUnknownToken):
		code, subcode, httpStatus = "s:Sender", "ter:NoToken", http.StatusBadRequest
	case errors.Is(err, ptz.ErrPresetLimit):
		code, subcode = "s:Receiver", "ter:TooManyPresets"
	case errors.Is(err, ptz.ErrNotInitialized),
		errors.Is(err, ptz.ErrHardware),
		errors.Is(err, ptz.ErrTimeout):
		code, subcode = "s:Receiver", "ter:HardwareFailure"
	}

	fault = soapFault{
		Code: faultCode{
			Value:   code,
			Subcode: &faultSubcode{Value: subcode},
		},
		Reason: faultReason{
			Text: faultText{Lang: "en", Text: err.Error()},
		},
	}
	return fault, httpStatus
}
