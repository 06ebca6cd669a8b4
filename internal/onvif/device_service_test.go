package onvif

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postDevice(t *testing.T, svc *DeviceService, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/onvif/device_service", strings.NewReader(body))
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)
	return rec
}

func deviceBody(inner string) string {
	return `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"` +
		` xmlns:tds="http://www.onvif.org/ver10/device/wsdl"><s:Body>` +
		inner + `</s:Body></s:Envelope>`
}

func TestGetDeviceInformation(t *testing.T) {
	svc := NewDeviceService(DeviceInfo{
		Manufacturer:    "Acme",
		Model:           "PT-1",
		FirmwareVersion: "1.2.3",
		SerialNumber:    "SN0001",
		HardwareID:      "HW-A",
	}, nil)

	rec := postDevice(t, svc, deviceBody(`<tds:GetDeviceInformation/>`))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<tds:Manufacturer>Acme</tds:Manufacturer>")
	assert.Contains(t, body, "<tds:Model>PT-1</tds:Model>")
	assert.Contains(t, body, "<tds:SerialNumber>SN0001</tds:SerialNumber>")
}

func TestGetSystemDateAndTime(t *testing.T) {
	svc := NewDeviceService(DeviceInfo{}, nil)

	rec := postDevice(t, svc, deviceBody(`<tds:GetSystemDateAndTime/>`))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "<tt:DateTimeType>NTP</tt:DateTimeType>")
}

func TestDeviceUnsupportedAction(t *testing.T) {
	svc := NewDeviceService(DeviceInfo{}, nil)

	rec := postDevice(t, svc, deviceBody(`<tds:SetSystemFactoryDefault/>`))
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "ter:ActionNotSupported")
}
