package onvif

import (
	"encoding/xml"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DeviceInfo is the static identification reported by the device service.
type DeviceInfo struct {
	Manufacturer    string
	Model           string
	FirmwareVersion string
	SerialNumber    string
	HardwareID      string
}

// DeviceService answers the small device-management subset clients use to
// identify the camera before driving PTZ.
type DeviceService struct {
	info DeviceInfo
	log  *zap.Logger
}

// NewDeviceService creates the device-management facade.
func NewDeviceService(info DeviceInfo, log *zap.Logger) *DeviceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeviceService{info: info, log: log}
}

type getDeviceInformationResponse struct {
	XMLName         xml.Name `xml:"tds:GetDeviceInformationResponse"`
	Manufacturer    string   `xml:"tds:Manufacturer"`
	Model           string   `xml:"tds:Model"`
	FirmwareVersion string   `xml:"tds:FirmwareVersion"`
	SerialNumber    string   `xml:"tds:SerialNumber"`
	HardwareId      string   `xml:"tds:HardwareId"`
}

type getSystemDateAndTimeResponse struct {
	XMLName           xml.Name          `xml:"tds:GetSystemDateAndTimeResponse"`
	SystemDateAndTime systemDateAndTime `xml:"tds:SystemDateAndTime"`
}

type systemDateAndTime struct {
	DateTimeType    string   `xml:"tt:DateTimeType"`
	DaylightSavings bool     `xml:"tt:DaylightSavings"`
	UTCDateTime     dateTime `xml:"tt:UTCDateTime"`
}

type dateTime struct {
	Time timeOfDay `xml:"tt:Time"`
	Date date      `xml:"tt:Date"`
}

type timeOfDay struct {
	Hour   int `xml:"tt:Hour"`
	Minute int `xml:"tt:Minute"`
	Second int `xml:"tt:Second"`
}

type date struct {
	Year  int `xml:"tt:Year"`
	Month int `xml:"tt:Month"`
	Day   int `xml:"tt:Day"`
}

// ServeHTTP dispatches device-management SOAP actions.
func (s *DeviceService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	action, _, err := decodeRequest(r)
	if err != nil {
		writeFault(w, err)
		return
	}

	switch action {
	case "GetDeviceInformation":
		writeResponse(w, getDeviceInformationResponse{
			Manufacturer:    s.info.Manufacturer,
			Model:           s.info.Model,
			FirmwareVersion: s.info.FirmwareVersion,
			SerialNumber:    s.info.SerialNumber,
			HardwareId:      s.info.HardwareID,
		})
	case "GetSystemDateAndTime":
		now := time.Now().UTC()
		writeResponse(w, getSystemDateAndTimeResponse{
			SystemDateAndTime: systemDateAndTime{
				DateTimeType:    "NTP",
				DaylightSavings: false,
				UTCDateTime: dateTime{
					Time: timeOfDay{Hour: now.Hour(), Minute: now.Minute(), Second: now.Second()},
					Date: date{Year: now.Year(), Month: int(now.Month()), Day: now.Day()},
				},
			},
		})
	default:
		s.log.Debug("unsupported device action", zap.String("action", action))
		writeFault(w, errActionNotSupported)
	}
}
