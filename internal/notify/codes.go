package notify

import "fmt"

// Source identifies the platform subsystem that emitted a notification.
type Source uint32

// Notification sources as reported by the WLAN API.
const (
	SourceNone     Source = 0x0
	SourceOneX     Source = 0x4
	SourceACM      Source = 0x8
	SourceMSM      Source = 0x10
	SourceSecurity Source = 0x20
	SourceIHV      Source = 0x40
	SourceHosted   Source = 0x80
	SourceAll      Source = 0xFFFF
)

func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceOneX:
		return "onex"
	case SourceACM:
		return "acm"
	case SourceMSM:
		return "msm"
	case SourceSecurity:
		return "security"
	case SourceIHV:
		return "ihv"
	case SourceHosted:
		return "hosted"
	case SourceAll:
		return "all"
	default:
		return fmt.Sprintf("source(0x%x)", uint32(s))
	}
}

// ParseSource maps a source name (as produced by String) back to a Source.
func ParseSource(name string) (Source, error) {
	for _, s := range []Source{SourceNone, SourceOneX, SourceACM, SourceMSM, SourceSecurity, SourceIHV, SourceHosted, SourceAll} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown notification source %q", name)
}

// Category is the top-level discriminant of an Event.
type Category int

const (
	CategoryUnclassified Category = iota
	CategoryConnectionManager
	CategoryMediaState
	CategoryAuthentication
	CategoryHostedNetwork
)

func (c Category) String() string {
	switch c {
	case CategoryConnectionManager:
		return "acm"
	case CategoryMediaState:
		return "msm"
	case CategoryAuthentication:
		return "onex"
	case CategoryHostedNetwork:
		return "hosted"
	default:
		return "unclassified"
	}
}

// ACMType enumerates connection manager notification codes.
type ACMType uint32

const (
	ACMAutoconfEnabled ACMType = iota + 1
	ACMAutoconfDisabled
	ACMBackgroundScanEnabled
	ACMBackgroundScanDisabled
	ACMBssTypeChange
	ACMPowerSettingChange
	ACMScanComplete
	ACMScanFail
	ACMConnectionStart
	ACMConnectionComplete
	ACMConnectionAttemptFail
	ACMFilterListChange
	ACMInterfaceArrival
	ACMInterfaceRemoval
	ACMProfileChange
	ACMProfileNameChange
	ACMProfilesExhausted
	ACMNetworkNotAvailable
	ACMNetworkAvailable
	ACMDisconnecting
	ACMDisconnected
	ACMAdhocNetworkStateChange
	ACMProfileUnblocked
	ACMScreenPowerChange
	ACMProfileBlocked
	ACMScanListRefresh
	ACMOperationalStateChange
)

var acmNames = [...]string{
	ACMAutoconfEnabled:         "autoconf_enabled",
	ACMAutoconfDisabled:        "autoconf_disabled",
	ACMBackgroundScanEnabled:   "background_scan_enabled",
	ACMBackgroundScanDisabled:  "background_scan_disabled",
	ACMBssTypeChange:           "bss_type_change",
	ACMPowerSettingChange:      "power_setting_change",
	ACMScanComplete:            "scan_complete",
	ACMScanFail:                "scan_fail",
	ACMConnectionStart:         "connection_start",
	ACMConnectionComplete:      "connection_complete",
	ACMConnectionAttemptFail:   "connection_attempt_fail",
	ACMFilterListChange:        "filter_list_change",
	ACMInterfaceArrival:        "interface_arrival",
	ACMInterfaceRemoval:        "interface_removal",
	ACMProfileChange:           "profile_change",
	ACMProfileNameChange:       "profile_name_change",
	ACMProfilesExhausted:       "profiles_exhausted",
	ACMNetworkNotAvailable:     "network_not_available",
	ACMNetworkAvailable:        "network_available",
	ACMDisconnecting:           "disconnecting",
	ACMDisconnected:            "disconnected",
	ACMAdhocNetworkStateChange: "adhoc_network_state_change",
	ACMProfileUnblocked:        "profile_unblocked",
	ACMScreenPowerChange:       "screen_power_change",
	ACMProfileBlocked:          "profile_blocked",
	ACMScanListRefresh:         "scan_list_refresh",
	ACMOperationalStateChange:  "operational_state_change",
}

// Valid reports whether t is a documented ACM code.
func (t ACMType) Valid() bool {
	return t >= ACMAutoconfEnabled && t <= ACMOperationalStateChange
}

func (t ACMType) String() string {
	if t.Valid() {
		return acmNames[t]
	}
	return fmt.Sprintf("acm(%d)", uint32(t))
}

// carriesConnectionInfo reports whether the payload is a
// WLAN_CONNECTION_NOTIFICATION_DATA.
func (t ACMType) carriesConnectionInfo() bool {
	switch t {
	case ACMConnectionStart, ACMConnectionComplete, ACMConnectionAttemptFail, ACMDisconnecting, ACMDisconnected:
		return true
	}
	return false
}

// MSMType enumerates media state notification codes.
type MSMType uint32

const (
	MSMAssociating MSMType = iota + 1
	MSMAssociated
	MSMAuthenticating
	MSMConnected
	MSMRoamingStart
	MSMRoamingEnd
	MSMRadioStateChange
	MSMSignalQualityChange
	MSMDisassociating
	MSMDisconnected
	MSMPeerJoin
	MSMPeerLeave
	MSMAdapterRemoval
	MSMAdapterOperationModeChange
	MSMLinkDegraded
	MSMLinkImproved
)

// msmUndocumented is emitted by some drivers and has no public definition.
const msmUndocumented = 59

var msmNames = [...]string{
	MSMAssociating:                "associating",
	MSMAssociated:                 "associated",
	MSMAuthenticating:             "authenticating",
	MSMConnected:                  "connected",
	MSMRoamingStart:               "roaming_start",
	MSMRoamingEnd:                 "roaming_end",
	MSMRadioStateChange:           "radio_state_change",
	MSMSignalQualityChange:        "signal_quality_change",
	MSMDisassociating:             "disassociating",
	MSMDisconnected:               "disconnected",
	MSMPeerJoin:                   "peer_join",
	MSMPeerLeave:                  "peer_leave",
	MSMAdapterRemoval:             "adapter_removal",
	MSMAdapterOperationModeChange: "adapter_operation_mode_change",
	MSMLinkDegraded:               "link_degraded",
	MSMLinkImproved:               "link_improved",
}

// Valid reports whether t is a documented MSM code.
func (t MSMType) Valid() bool {
	return t >= MSMAssociating && t <= MSMLinkImproved
}

func (t MSMType) String() string {
	if t.Valid() {
		return msmNames[t]
	}
	return fmt.Sprintf("msm(%d)", uint32(t))
}

func (t MSMType) carriesConnectionInfo() bool {
	switch t {
	case MSMAssociating, MSMAssociated, MSMAuthenticating, MSMConnected,
		MSMRoamingStart, MSMRoamingEnd, MSMDisassociating, MSMDisconnected:
		return true
	}
	return false
}

// OneXType enumerates 802.1X notification codes.
type OneXType uint32

const (
	OneXResultUpdate OneXType = iota + 1
	OneXAuthRestarted
	OneXEventInvalid
)

func (t OneXType) Valid() bool {
	return t >= OneXResultUpdate && t <= OneXEventInvalid
}

func (t OneXType) String() string {
	switch t {
	case OneXResultUpdate:
		return "result_update"
	case OneXAuthRestarted:
		return "auth_restarted"
	case OneXEventInvalid:
		return "event_invalid"
	default:
		return fmt.Sprintf("onex(%d)", uint32(t))
	}
}

// HostedType enumerates hosted network notification codes.
type HostedType uint32

const (
	HostedStateChange HostedType = iota + 4096
	HostedPeerStateChange
	HostedRadioStateChange
)

func (t HostedType) Valid() bool {
	return t >= HostedStateChange && t <= HostedRadioStateChange
}

func (t HostedType) String() string {
	switch t {
	case HostedStateChange:
		return "state_change"
	case HostedPeerStateChange:
		return "peer_state_change"
	case HostedRadioStateChange:
		return "radio_state_change"
	default:
		return fmt.Sprintf("hosted(%d)", uint32(t))
	}
}

// ParseSubtype resolves a subtype name within a source to its numeric code.
// Used by scenario files and simulated adapter scripts.
func ParseSubtype(src Source, name string) (uint32, error) {
	switch src {
	case SourceACM:
		for t := ACMAutoconfEnabled; t <= ACMOperationalStateChange; t++ {
			if acmNames[t] == name {
				return uint32(t), nil
			}
		}
	case SourceMSM:
		for t := MSMAssociating; t <= MSMLinkImproved; t++ {
			if msmNames[t] == name {
				return uint32(t), nil
			}
		}
	case SourceOneX:
		for t := OneXResultUpdate; t <= OneXEventInvalid; t++ {
			if t.String() == name {
				return uint32(t), nil
			}
		}
	case SourceHosted:
		for t := HostedStateChange; t <= HostedRadioStateChange; t++ {
			if t.String() == name {
				return uint32(t), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown %s notification type %q", src, name)
}
