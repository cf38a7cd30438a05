package testutil

import (
	"net"

	"github.com/roach88/roamwatch/internal/notify"
)

// Default connection details used by the event builders.
const (
	DefaultSSID    = "Lab"
	DefaultProfile = "Lab"
)

// DefaultBSSID is the access point the builders report.
var DefaultBSSID = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}

// Info returns connection info for the default network with the given reason.
func Info(reason uint32) *notify.ConnectionInfo {
	return &notify.ConnectionInfo{
		SSID:    DefaultSSID,
		BSSID:   append(net.HardwareAddr(nil), DefaultBSSID...),
		Profile: DefaultProfile,
		Reason:  reason,
	}
}

// Media returns an MSM event with default connection info.
func Media(t notify.MSMType) notify.MediaState {
	return notify.MediaState{Type: t, Info: Info(notify.ReasonSuccess)}
}

// Conn returns an ACM event with default connection info and reason.
func Conn(t notify.ACMType, reason uint32) notify.ConnectionManager {
	return notify.ConnectionManager{Type: t, Info: Info(reason)}
}

// Common sequences.

func RoamingStart() notify.Event   { return Media(notify.MSMRoamingStart) }
func RoamingEnd() notify.Event     { return Media(notify.MSMRoamingEnd) }
func Authenticating() notify.Event { return Media(notify.MSMAuthenticating) }
func Disconnected() notify.Event   { return Media(notify.MSMDisconnected) }

func ConnectionStart() notify.Event { return Conn(notify.ACMConnectionStart, notify.ReasonSuccess) }

// ConnectionComplete returns a connection-complete event with reason.
// A zero reason is success.
func ConnectionComplete(reason uint32) notify.Event {
	return Conn(notify.ACMConnectionComplete, reason)
}

// Signal returns a signal quality change.
func Signal(quality uint32) notify.Event {
	return notify.MediaState{Type: notify.MSMSignalQualityChange, SignalQuality: quality}
}
