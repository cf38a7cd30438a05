package notify

import (
	"encoding/binary"
	"fmt"
	"net"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Raw is an undecoded notification as delivered by the platform callback.
// Payload holds a copy of the notification data buffer.
type Raw struct {
	Source  Source
	Code    uint32
	Payload []byte
}

// Payload layouts (little endian, natural alignment).
//
// WLAN_CONNECTION_NOTIFICATION_DATA:
//
//	0   wlanConnectionMode  uint32
//	4   strProfileName      [256]uint16
//	516 dot11Ssid.uSSIDLength uint32
//	520 dot11Ssid.ucSSID    [32]byte
//	552 dot11BssType        uint32
//	556 bSecurityEnabled    int32
//	560 wlanReasonCode      uint32
//	564 dwFlags             uint32
//	568 strProfileXml       (variable)
//
// WLAN_MSM_NOTIFICATION_DATA:
//
//	0   wlanConnectionMode  uint32
//	4   strProfileName      [256]uint16
//	516 dot11Ssid           (36 bytes)
//	552 dot11BssType        uint32
//	556 dot11MacAddr        [6]byte
//	564 bSecurityEnabled    int32
//	568 bFirstPeer          int32
//	572 bLastPeer           int32
//	576 wlanReasonCode      uint32
const (
	profileOffset  = 4
	profileChars   = 256
	ssidLenOffset  = 516
	ssidOffset     = 520
	maxSSIDLen     = 32
	acmReasonOff   = 560
	acmPayloadSize = 568
	msmMacOffset   = 556
	msmReasonOff   = 576
	msmPayloadSize = 580
)

// DecodeErrorCode categorizes decode failures.
type DecodeErrorCode string

const (
	// ErrCodeUnknownSource indicates a source the decoder does not handle.
	ErrCodeUnknownSource DecodeErrorCode = "UNKNOWN_SOURCE"
	// ErrCodeShortPayload indicates a payload smaller than its layout.
	ErrCodeShortPayload DecodeErrorCode = "SHORT_PAYLOAD"
)

// DecodeError is returned when a raw notification cannot be decoded.
type DecodeError struct {
	Code    DecodeErrorCode
	Source  Source
	Type    uint32
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s (source=%s code=%d)", e.Code, e.Message, e.Source, e.Type)
}

// Decode converts a raw notification into an Event.
//
// Codes that are unknown within a known source decode to Unclassified.
// A DecodeError is returned for sources outside ACM/MSM/1X/hosted network and
// for payloads too short for the layout their code requires.
func Decode(raw Raw) (Event, error) {
	switch raw.Source {
	case SourceACM:
		return decodeACM(raw)
	case SourceMSM:
		return decodeMSM(raw)
	case SourceOneX:
		t := OneXType(raw.Code)
		if !t.Valid() {
			return Unclassified{Source: raw.Source, Code: raw.Code}, nil
		}
		return Authentication{Type: t}, nil
	case SourceHosted:
		t := HostedType(raw.Code)
		if !t.Valid() {
			return Unclassified{Source: raw.Source, Code: raw.Code}, nil
		}
		return HostedNetwork{Type: t}, nil
	default:
		return nil, &DecodeError{
			Code:    ErrCodeUnknownSource,
			Source:  raw.Source,
			Type:    raw.Code,
			Message: "notification source not handled",
		}
	}
}

func decodeACM(raw Raw) (Event, error) {
	t := ACMType(raw.Code)
	if !t.Valid() {
		return Unclassified{Source: raw.Source, Code: raw.Code}, nil
	}

	ev := ConnectionManager{Type: t}
	switch {
	case t.carriesConnectionInfo():
		if len(raw.Payload) < acmPayloadSize {
			return nil, shortPayload(raw, acmPayloadSize)
		}
		info := decodeConnectionInfo(raw.Payload, binary.LittleEndian.Uint32(raw.Payload[acmReasonOff:]))
		ev.Info = &info
	case t == ACMScanFail:
		if len(raw.Payload) < 4 {
			return nil, shortPayload(raw, 4)
		}
		ev.ScanFailReason = binary.LittleEndian.Uint32(raw.Payload)
	}
	return ev, nil
}

func decodeMSM(raw Raw) (Event, error) {
	t := MSMType(raw.Code)
	if !t.Valid() || raw.Code == msmUndocumented {
		return Unclassified{Source: raw.Source, Code: raw.Code}, nil
	}

	ev := MediaState{Type: t}
	switch {
	case t.carriesConnectionInfo():
		if len(raw.Payload) < msmPayloadSize {
			return nil, shortPayload(raw, msmPayloadSize)
		}
		info := decodeConnectionInfo(raw.Payload, binary.LittleEndian.Uint32(raw.Payload[msmReasonOff:]))
		mac := make(net.HardwareAddr, 6)
		copy(mac, raw.Payload[msmMacOffset:msmMacOffset+6])
		info.BSSID = mac
		ev.Info = &info
	case t == MSMSignalQualityChange:
		if len(raw.Payload) < 4 {
			return nil, shortPayload(raw, 4)
		}
		ev.SignalQuality = binary.LittleEndian.Uint32(raw.Payload)
	}
	return ev, nil
}

func shortPayload(raw Raw, want int) *DecodeError {
	return &DecodeError{
		Code:    ErrCodeShortPayload,
		Source:  raw.Source,
		Type:    raw.Code,
		Message: fmt.Sprintf("payload is %d bytes, need %d", len(raw.Payload), want),
	}
}

// decodeConnectionInfo reads the profile name and SSID shared by both layouts.
func decodeConnectionInfo(p []byte, reason uint32) ConnectionInfo {
	return ConnectionInfo{
		SSID:    DecodeSSID(p[ssidOffset:ssidOffset+maxSSIDLen], binary.LittleEndian.Uint32(p[ssidLenOffset:])),
		Profile: decodeUTF16(p[profileOffset : profileOffset+profileChars*2]),
		Reason:  reason,
	}
}

// DecodeSSID returns the first n bytes of an SSID buffer as text. Lengths
// beyond 32 are clamped. Invalid UTF-8 is replaced so that the result is
// always printable.
func DecodeSSID(buf []byte, n uint32) string {
	if n > maxSSIDLen {
		n = maxSSIDLen
	}
	if int(n) > len(buf) {
		n = uint32(len(buf))
	}
	s := buf[:n]
	if !utf8.Valid(s) {
		return norm.NFC.String(string([]rune(string(s))))
	}
	return norm.NFC.String(string(s))
}

// decodeUTF16 reads a NUL terminated little endian UTF-16 string.
func decodeUTF16(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u := binary.LittleEndian.Uint16(b[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return norm.NFC.String(string(utf16.Decode(units)))
}

// EncodeConnectionPayload builds a WLAN_CONNECTION_NOTIFICATION_DATA buffer.
// It is the inverse of the ACM decoder and is used by the simulated adapter.
func EncodeConnectionPayload(info ConnectionInfo) []byte {
	p := make([]byte, acmPayloadSize)
	encodeCommon(p, info)
	binary.LittleEndian.PutUint32(p[acmReasonOff:], info.Reason)
	return p
}

// EncodeMediaPayload builds a WLAN_MSM_NOTIFICATION_DATA buffer.
func EncodeMediaPayload(info ConnectionInfo) []byte {
	p := make([]byte, msmPayloadSize)
	encodeCommon(p, info)
	copy(p[msmMacOffset:msmMacOffset+6], info.BSSID)
	binary.LittleEndian.PutUint32(p[msmReasonOff:], info.Reason)
	return p
}

// EncodeUint32Payload builds a single ULONG payload (signal quality, scan fail reason).
func EncodeUint32Payload(v uint32) []byte {
	p := make([]byte, 4)
	binary.LittleEndian.PutUint32(p, v)
	return p
}

func encodeCommon(p []byte, info ConnectionInfo) {
	units := utf16.Encode([]rune(info.Profile))
	if len(units) > profileChars-1 {
		units = units[:profileChars-1]
	}
	for i, u := range units {
		binary.LittleEndian.PutUint16(p[profileOffset+i*2:], u)
	}
	ssid := []byte(info.SSID)
	if len(ssid) > maxSSIDLen {
		ssid = ssid[:maxSSIDLen]
	}
	binary.LittleEndian.PutUint32(p[ssidLenOffset:], uint32(len(ssid)))
	copy(p[ssidOffset:], ssid)
}
