package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roamwatch/internal/notify"
)

func TestConnectionComplete_Reason(t *testing.T) {
	ok := ConnectionComplete(0).(notify.ConnectionManager)
	require.NotNil(t, ok.Info)
	assert.True(t, ok.Info.Success())

	failed := ConnectionComplete(0x28002).(notify.ConnectionManager)
	assert.False(t, failed.Info.Success())
}

func TestInfo_DoesNotAliasDefaultBSSID(t *testing.T) {
	info := Info(0)
	info.BSSID[0] = 0xFF
	assert.Equal(t, byte(0x00), DefaultBSSID[0])
}

func TestBuilders_Discriminants(t *testing.T) {
	assert.True(t, notify.Matches(notify.MSM(notify.MSMRoamingStart), RoamingStart()))
	assert.True(t, notify.Matches(notify.MSM(notify.MSMRoamingEnd), RoamingEnd()))
	assert.True(t, notify.Matches(notify.MSM(notify.MSMAuthenticating), Authenticating()))
	assert.True(t, notify.Matches(notify.MSM(notify.MSMDisconnected), Disconnected()))
	assert.True(t, notify.Matches(notify.ACM(notify.ACMConnectionStart), ConnectionStart()))
	assert.Equal(t, uint32(55), Signal(55).(notify.MediaState).SignalQuality)
}
