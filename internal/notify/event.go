package notify

import (
	"fmt"
	"net"
)

// ReasonSuccess is the reason code the platform reports for a successful operation.
const ReasonSuccess uint32 = 0

// ConnectionInfo is the connection payload carried by connection and
// media state notifications.
type ConnectionInfo struct {
	SSID    string
	BSSID   net.HardwareAddr
	Profile string
	Reason  uint32
}

// Success reports whether the reason code is the success sentinel.
func (c ConnectionInfo) Success() bool {
	return c.Reason == ReasonSuccess
}

func (c ConnectionInfo) String() string {
	bssid := "-"
	if len(c.BSSID) > 0 {
		bssid = FormatBSSID(c.BSSID)
	}
	return fmt.Sprintf("ssid=%q bssid=%s profile=%q reason=%d", c.SSID, bssid, c.Profile, c.Reason)
}

// FormatBSSID renders a hardware address as upper-case colon separated hex.
func FormatBSSID(addr net.HardwareAddr) string {
	const hex = "0123456789ABCDEF"
	if len(addr) == 0 {
		return ""
	}
	buf := make([]byte, 0, len(addr)*3-1)
	for i, b := range addr {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, hex[b>>4], hex[b&0x0F])
	}
	return string(buf)
}

// Discriminant identifies the variant of an Event independent of its payload.
// Two events match when their discriminants are equal.
type Discriminant struct {
	Category Category
	Subtype  uint32
	// Source is set for Unclassified only; the other categories imply it.
	Source Source
}

func (d Discriminant) String() string {
	switch d.Category {
	case CategoryConnectionManager:
		return "acm." + ACMType(d.Subtype).String()
	case CategoryMediaState:
		return "msm." + MSMType(d.Subtype).String()
	case CategoryAuthentication:
		return "onex." + OneXType(d.Subtype).String()
	case CategoryHostedNetwork:
		return "hosted." + HostedType(d.Subtype).String()
	default:
		return fmt.Sprintf("unclassified(%d)", d.Subtype)
	}
}

// Event is a decoded adapter notification. The concrete type is one of
// ConnectionManager, MediaState, Authentication, HostedNetwork or
// Unclassified.
type Event interface {
	Discriminant() Discriminant
	String() string

	// notification restricts implementations to this package.
	notification()
}

// ConnectionManager is an ACM notification.
type ConnectionManager struct {
	Type ACMType
	// Info is set for connection start/complete/attempt-fail/disconnect events.
	Info *ConnectionInfo
	// ScanFailReason is set for ACMScanFail.
	ScanFailReason uint32
}

func (ConnectionManager) notification() {}

// Discriminant implements Event.
func (e ConnectionManager) Discriminant() Discriminant {
	return Discriminant{Category: CategoryConnectionManager, Subtype: uint32(e.Type)}
}

func (e ConnectionManager) String() string {
	switch {
	case e.Info != nil:
		return fmt.Sprintf("%s{%s}", e.Discriminant(), e.Info)
	case e.Type == ACMScanFail:
		return fmt.Sprintf("%s{reason=%d}", e.Discriminant(), e.ScanFailReason)
	default:
		return e.Discriminant().String()
	}
}

// MediaState is an MSM notification.
type MediaState struct {
	Type MSMType
	Info *ConnectionInfo
	// SignalQuality is the link quality percentage for MSMSignalQualityChange.
	SignalQuality uint32
}

func (MediaState) notification() {}

// Discriminant implements Event.
func (e MediaState) Discriminant() Discriminant {
	return Discriminant{Category: CategoryMediaState, Subtype: uint32(e.Type)}
}

func (e MediaState) String() string {
	switch {
	case e.Info != nil:
		return fmt.Sprintf("%s{%s}", e.Discriminant(), e.Info)
	case e.Type == MSMSignalQualityChange:
		return fmt.Sprintf("%s{quality=%d}", e.Discriminant(), e.SignalQuality)
	default:
		return e.Discriminant().String()
	}
}

// Authentication is an 802.1X notification.
type Authentication struct {
	Type OneXType
}

func (Authentication) notification() {}

// Discriminant implements Event.
func (e Authentication) Discriminant() Discriminant {
	return Discriminant{Category: CategoryAuthentication, Subtype: uint32(e.Type)}
}

func (e Authentication) String() string { return e.Discriminant().String() }

// HostedNetwork is a hosted network notification.
type HostedNetwork struct {
	Type HostedType
}

func (HostedNetwork) notification() {}

// Discriminant implements Event.
func (e HostedNetwork) Discriminant() Discriminant {
	return Discriminant{Category: CategoryHostedNetwork, Subtype: uint32(e.Type)}
}

func (e HostedNetwork) String() string { return e.Discriminant().String() }

// Unclassified is a notification whose code could not be mapped. It is kept
// for logging and never drives correlation.
type Unclassified struct {
	Source Source
	Code   uint32
}

func (Unclassified) notification() {}

// Discriminant implements Event.
func (e Unclassified) Discriminant() Discriminant {
	return Discriminant{Category: CategoryUnclassified, Subtype: e.Code, Source: e.Source}
}

func (e Unclassified) String() string {
	return fmt.Sprintf("unclassified{source=%s code=%d}", e.Source, e.Code)
}

// Template constructors used for matching. Payload fields are left empty
// because matching only compares discriminants.

// ACM returns a payload-free ConnectionManager event of the given type.
func ACM(t ACMType) Event { return ConnectionManager{Type: t} }

// MSM returns a payload-free MediaState event of the given type.
func MSM(t MSMType) Event { return MediaState{Type: t} }

// Matches reports whether ev has the same discriminant as template.
func Matches(template, ev Event) bool {
	if template == nil || ev == nil {
		return false
	}
	return template.Discriminant() == ev.Discriminant()
}
