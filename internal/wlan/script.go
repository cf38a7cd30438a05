package wlan

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/roamwatch/internal/notify"
)

// Script drives the simulated adapter.
type Script struct {
	Interfaces []Interface        `yaml:"interfaces"`
	Networks   []AvailableNetwork `yaml:"networks"`
	BSS        []ScriptBSS        `yaml:"bss"`
	Events     []ScriptEvent      `yaml:"events"`
	Scan       ScriptScan         `yaml:"scan"`
}

// ScriptBSS is a BSS entry as written in a script.
type ScriptBSS struct {
	SSID        string `yaml:"ssid"`
	BSSID       string `yaml:"bssid"`
	RSSI        int32  `yaml:"rssi"`
	LinkQuality uint32 `yaml:"link_quality"`
	Frequency   uint32 `yaml:"frequency"`
}

// Scan responses of the simulated adapter.
const (
	ScanRespondRefresh = "refresh"
	ScanRespondFail    = "fail"
	ScanRespondNone    = "none"
)

// ScriptScan configures how the simulated adapter answers scan requests.
type ScriptScan struct {
	// Delay before the response notifications.
	Delay time.Duration `yaml:"delay"`
	// Respond is refresh (default), fail or none.
	Respond string `yaml:"respond"`
	// FailReason is the reason code reported with respond: fail.
	FailReason uint32 `yaml:"fail_reason"`
}

// ScriptEvent is one notification in a script or scenario file.
//
// Type names a subtype within Source (e.g. msm roaming_start). Code may be
// given instead of Type for codes without a name.
type ScriptEvent struct {
	After          time.Duration `yaml:"after"`
	Source         string        `yaml:"source"`
	Type           string        `yaml:"type"`
	Code           uint32        `yaml:"code"`
	SSID           string        `yaml:"ssid"`
	BSSID          string        `yaml:"bssid"`
	Profile        string        `yaml:"profile"`
	Reason         uint32        `yaml:"reason"`
	SignalQuality  uint32        `yaml:"signal_quality"`
	ScanFailReason uint32        `yaml:"scan_fail_reason"`
}

// Raw encodes the event the way the platform callback would deliver it.
func (e ScriptEvent) Raw() (notify.Raw, error) {
	src, err := notify.ParseSource(e.Source)
	if err != nil {
		return notify.Raw{}, err
	}

	code := e.Code
	if e.Type != "" {
		code, err = notify.ParseSubtype(src, e.Type)
		if err != nil {
			return notify.Raw{}, err
		}
	} else if code == 0 {
		return notify.Raw{}, errors.New("event needs a type or a code")
	}

	if err := ValidateSSID(e.SSID); err != nil {
		return notify.Raw{}, err
	}
	info := notify.ConnectionInfo{SSID: e.SSID, Profile: e.Profile, Reason: e.Reason}
	if info.Profile == "" {
		info.Profile = e.SSID
	}
	if e.BSSID != "" {
		mac, err := net.ParseMAC(e.BSSID)
		if err != nil {
			return notify.Raw{}, fmt.Errorf("bssid: %w", err)
		}
		info.BSSID = mac
	}

	raw := notify.Raw{Source: src, Code: code}
	switch src {
	case notify.SourceACM:
		if notify.ACMType(code) == notify.ACMScanFail {
			raw.Payload = notify.EncodeUint32Payload(e.ScanFailReason)
		} else {
			raw.Payload = notify.EncodeConnectionPayload(info)
		}
	case notify.SourceMSM:
		if notify.MSMType(code) == notify.MSMSignalQualityChange {
			raw.Payload = notify.EncodeUint32Payload(e.SignalQuality)
		} else {
			raw.Payload = notify.EncodeMediaPayload(info)
		}
	}
	return raw, nil
}

// Event encodes and decodes e, yielding the event the bus would carry.
func (e ScriptEvent) Event() (notify.Event, error) {
	raw, err := e.Raw()
	if err != nil {
		return nil, err
	}
	return notify.Decode(raw)
}

// LoadScript reads and validates a script file.
func LoadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	s, err := ParseScript(f)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	return s, nil
}

// ParseScript decodes a script. Unknown fields are rejected.
func ParseScript(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := validateScript(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func validateScript(s *Script) error {
	for i, ev := range s.Events {
		if ev.After < 0 {
			return fmt.Errorf("events[%d]: negative delay", i)
		}
		if _, err := ev.Raw(); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
	}
	for i, b := range s.BSS {
		if _, err := net.ParseMAC(b.BSSID); err != nil {
			return fmt.Errorf("bss[%d]: %w", i, err)
		}
		if err := ValidateSSID(b.SSID); err != nil {
			return fmt.Errorf("bss[%d]: %w", i, err)
		}
	}
	switch s.Scan.Respond {
	case "":
		s.Scan.Respond = ScanRespondRefresh
	case ScanRespondRefresh, ScanRespondFail, ScanRespondNone:
	default:
		return fmt.Errorf("scan.respond: unknown value %q", s.Scan.Respond)
	}
	if len(s.Interfaces) == 0 {
		s.Interfaces = []Interface{{
			GUID:        "00000000-0000-0000-0000-000000000001",
			Description: "Simulated Wireless Adapter",
			State:       "connected",
		}}
	}
	return nil
}

// ParseScriptString is ParseScript for inline scripts.
func ParseScriptString(s string) (*Script, error) {
	return ParseScript(strings.NewReader(s))
}
