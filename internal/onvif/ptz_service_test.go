package onvif

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onvif-camd/internal/hal/sim"
	"onvif-camd/internal/ptz"
)

func newTestService(t *testing.T) (*PTZService, *ptz.Adapter) {
	t.Helper()

	adapter := ptz.NewAdapter(sim.New(), nil)
	require.NoError(t, adapter.Init())
	t.Cleanup(adapter.Cleanup)

	svc := NewPTZService(adapter, NewPresetStore(), nil)
	return svc, adapter
}

func post(t *testing.T, svc *PTZService, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/onvif/ptz_service", strings.NewReader(body))
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)
	return rec
}

func soapBody(inner string) string {
	return `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"` +
		` xmlns:tptz="http://www.onvif.org/ver20/ptz/wsdl"` +
		` xmlns:tt="http://www.onvif.org/ver10/schema"><s:Body>` +
		inner + `</s:Body></s:Envelope>`
}

func absoluteMoveBody(x, y float32) string {
	return soapBody(fmt.Sprintf(
		`<tptz:AbsoluteMove><tptz:ProfileToken>Profile0</tptz:ProfileToken>`+
			`<tptz:Position><tt:PanTilt x="%g" y="%g"/></tptz:Position>`+
			`</tptz:AbsoluteMove>`, x, y))
}

func TestAbsoluteMoveDrivesAdapter(t *testing.T) {
	svc, adapter := newTestService(t)

	rec := post(t, svc, absoluteMoveBody(0.5, 0.5))
	require.Equal(t, 200, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "AbsoluteMoveResponse")

	pos, err := adapter.Status()
	require.NoError(t, err)
	assert.Equal(t, ptz.Position{PanDeg: 90, TiltDeg: 45}, pos)
}

func TestGetStatusReportsNormalizedPosition(t *testing.T) {
	svc, _ := newTestService(t)

	require.Equal(t, 200, post(t, svc, absoluteMoveBody(0.5, 0.5)).Code)

	rec := post(t, svc, soapBody(
		`<tptz:GetStatus><tptz:ProfileToken>Profile0</tptz:ProfileToken></tptz:GetStatus>`))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `x="0.5"`)
	assert.Contains(t, body, `y="0.5"`)
	assert.Contains(t, body, "IDLE")
}

func TestRelativeMoveStepLimited(t *testing.T) {
	svc, adapter := newTestService(t)

	// A full-range translation still moves only one motor step per call.
	rec := post(t, svc, soapBody(
		`<tptz:RelativeMove><tptz:ProfileToken>Profile0</tptz:ProfileToken>`+
			`<tptz:Translation><tt:PanTilt x="1" y="0"/></tptz:Translation>`+
			`</tptz:RelativeMove>`))
	require.Equal(t, 200, rec.Code, rec.Body.String())

	pos, err := adapter.Status()
	require.NoError(t, err)
	assert.Equal(t, 16, pos.PanDeg)
}

func TestContinuousMoveAndStop(t *testing.T) {
	svc, adapter := newTestService(t)

	rec := post(t, svc, soapBody(
		`<tptz:ContinuousMove><tptz:ProfileToken>Profile0</tptz:ProfileToken>`+
			`<tptz:Velocity><tt:PanTilt x="1" y="0"/></tptz:Velocity>`+
			`</tptz:ContinuousMove>`))
	require.Equal(t, 200, rec.Code, rec.Body.String())

	// No Timeout element: the default auto-stop timer is armed.
	assert.True(t, adapter.ContinuousActive())

	rec = post(t, svc, soapBody(
		`<tptz:Stop><tptz:ProfileToken>Profile0</tptz:ProfileToken>`+
			`<tptz:PanTilt>true</tptz:PanTilt></tptz:Stop>`))
	require.Equal(t, 200, rec.Code)
	assert.False(t, adapter.ContinuousActive())
}

func TestStopZoomOnlyLeavesMotionRunning(t *testing.T) {
	svc, adapter := newTestService(t)

	require.Equal(t, 200, post(t, svc, soapBody(
		`<tptz:ContinuousMove><tptz:ProfileToken>Profile0</tptz:ProfileToken>`+
			`<tptz:Velocity><tt:PanTilt x="1" y="0"/></tptz:Velocity>`+
			`</tptz:ContinuousMove>`)).Code)

	rec := post(t, svc, soapBody(
		`<tptz:Stop><tptz:ProfileToken>Profile0</tptz:ProfileToken>`+
			`<tptz:PanTilt>false</tptz:PanTilt><tptz:Zoom>true</tptz:Zoom></tptz:Stop>`))
	require.Equal(t, 200, rec.Code)
	assert.True(t, adapter.ContinuousActive())
}

func TestPresetRoundTrip(t *testing.T) {
	svc, adapter := newTestService(t)

	require.Equal(t, 200, post(t, svc, absoluteMoveBody(0.5, 0.5)).Code)

	rec := post(t, svc, soapBody(
		`<tptz:SetPreset><tptz:ProfileToken>Profile0</tptz:ProfileToken>`+
			`<tptz:PresetName>home</tptz:PresetName></tptz:SetPreset>`))
	require.Equal(t, 200, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Preset1")

	// Move away, then recall: the adapter must land back on the snapshot.
	require.Equal(t, 200, post(t, svc, absoluteMoveBody(-1, -1)).Code)

	rec = post(t, svc, soapBody(
		`<tptz:GotoPreset><tptz:ProfileToken>Profile0</tptz:ProfileToken>`+
			`<tptz:PresetToken>Preset1</tptz:PresetToken></tptz:GotoPreset>`))
	require.Equal(t, 200, rec.Code, rec.Body.String())

	pos, err := adapter.Status()
	require.NoError(t, err)
	assert.Equal(t, ptz.Position{PanDeg: 90, TiltDeg: 45}, pos)

	rec = post(t, svc, soapBody(
		`<tptz:GetPresets><tptz:ProfileToken>Profile0</tptz:ProfileToken></tptz:GetPresets>`))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "home")

	rec = post(t, svc, soapBody(
		`<tptz:RemovePreset><tptz:ProfileToken>Profile0</tptz:ProfileToken>`+
			`<tptz:PresetToken>Preset1</tptz:PresetToken></tptz:RemovePreset>`))
	require.Equal(t, 200, rec.Code)

	// Second removal: the token is gone.
	rec = post(t, svc, soapBody(
		`<tptz:RemovePreset><tptz:ProfileToken>Profile0</tptz:ProfileToken>`+
			`<tptz:PresetToken>Preset1</tptz:PresetToken></tptz:RemovePreset>`))
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "ter:NoToken")
}

func TestPresetCapacity(t *testing.T) {
	svc, _ := newTestService(t)

	setPreset := soapBody(
		`<tptz:SetPreset><tptz:ProfileToken>Profile0</tptz:ProfileToken>` +
			`<tptz:PresetName>spot</tptz:PresetName></tptz:SetPreset>`)

	for i := 0; i < 10; i++ {
		require.Equal(t, 200, post(t, svc, setPreset).Code)
	}

	rec := post(t, svc, setPreset)
	assert.Equal(t, 500, rec.Code)
	assert.Contains(t, rec.Body.String(), "ter:TooManyPresets")
	assert.Equal(t, 10, svc.presets.Len())
}

func TestGetNodesMetadata(t *testing.T) {
	svc, _ := newTestService(t)

	rec := post(t, svc, soapBody(`<tptz:GetNodes/>`))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `token="PTZNode0"`)
	assert.Contains(t, body, "<tt:MaximumNumberOfPresets>10</tt:MaximumNumberOfPresets>")
	assert.Contains(t, body, "VelocityGenericSpace")
	// No zoom spaces are advertised.
	assert.NotContains(t, body, "ZoomPositionSpace")
}

func TestUnsupportedActionFault(t *testing.T) {
	svc, _ := newTestService(t)

	rec := post(t, svc, soapBody(`<tptz:SetHomePosition><tptz:ProfileToken>Profile0</tptz:ProfileToken></tptz:SetHomePosition>`))
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "ter:ActionNotSupported")
}

func TestMalformedEnvelopeFault(t *testing.T) {
	svc, _ := newTestService(t)

	rec := post(t, svc, "this is not xml")
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "ter:WellFormed")
}

func TestUninitializedAdapterFaults(t *testing.T) {
	adapter := ptz.NewAdapter(sim.New(), nil)
	svc := NewPTZService(adapter, NewPresetStore(), nil)

	rec := post(t, svc, soapBody(
		`<tptz:GetStatus><tptz:ProfileToken>Profile0</tptz:ProfileToken></tptz:GetStatus>`))
	assert.Equal(t, 500, rec.Code)
	assert.Contains(t, rec.Body.String(), "ter:HardwareFailure")
}

func TestParseTimeoutSeconds(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"PT5S", 5, false},
		{"PT1M30S", 90, false},
		{"PT2H", 7200, false},
		{"PT0.5S", 1, false}, // fractions round up, never down to zero
		{"", 0, false},
		{"5 seconds", 0, true},
		{"PTXS", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimeoutSeconds(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
