package notify

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeysNoHTMLEscape(t *testing.T) {
	b, err := MarshalCanonical(map[string]any{
		"z":    1,
		"a":    "<cafe & bar>",
		"list": []any{true, "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<cafe & bar>","list":[true,"x"],"z":1}`, string(b))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" + combining acute accent normalizes to a single code point.
	b, err := MarshalCanonical("cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"caf\u00e9\"", string(b))
}

func TestMarshalCanonical_RejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"k": nil})
	assert.Error(t, err)
}

func TestFields_FromFields(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{"media state with info", MediaState{
			Type: MSMRoamingEnd,
			Info: &ConnectionInfo{SSID: "Lab", BSSID: net.HardwareAddr{0xa, 0xb, 0xc, 0xd, 0xe, 0xf}, Profile: "Lab", Reason: 0},
		}},
		{"connection complete failure", ConnectionManager{
			Type: ACMConnectionComplete,
			Info: &ConnectionInfo{SSID: "", Profile: "Guest", Reason: 0x28002},
		}},
		{"signal quality", MediaState{Type: MSMSignalQualityChange, SignalQuality: 41}},
		{"scan fail", ConnectionManager{Type: ACMScanFail, ScanFailReason: 3}},
		{"onex", Authentication{Type: OneXResultUpdate}},
		{"unclassified", Unclassified{Source: SourceMSM, Code: 59}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := MarshalCanonical(Fields(tt.ev))
			require.NoError(t, err)

			got, err := FromFields(SourceOf(tt.ev), tt.ev.Discriminant().Subtype, payload)
			require.NoError(t, err)
			assert.Equal(t, tt.ev, got)
		})
	}
}
