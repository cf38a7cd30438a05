package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces deterministic JSON for stored payloads.
//
// Differences from json.Marshal:
//  1. Object keys are sorted
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Floats and nulls are rejected
//
// Byte-identical output for equal events lets captured sessions be diffed.
func MarshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case uint32:
		return []byte(fmt.Sprintf("%d", val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return MarshalCanonical(arr)
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalCanonical(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalCanonicalString(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := MarshalCanonical(val[k])
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	// Encoder appends a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// SourceOf returns the platform source an event was decoded from.
func SourceOf(ev Event) Source {
	switch e := ev.(type) {
	case ConnectionManager:
		return SourceACM
	case MediaState:
		return SourceMSM
	case Authentication:
		return SourceOneX
	case HostedNetwork:
		return SourceHosted
	case Unclassified:
		return e.Source
	default:
		return SourceNone
	}
}

// Fields returns the payload of ev as a map suitable for MarshalCanonical.
// Events without a payload return an empty map.
func Fields(ev Event) map[string]any {
	fields := map[string]any{}
	var info *ConnectionInfo
	switch e := ev.(type) {
	case ConnectionManager:
		info = e.Info
		if e.Type == ACMScanFail {
			fields["scan_fail_reason"] = e.ScanFailReason
		}
	case MediaState:
		info = e.Info
		if e.Type == MSMSignalQualityChange {
			fields["signal_quality"] = e.SignalQuality
		}
	}
	if info != nil {
		fields["ssid"] = info.SSID
		fields["profile"] = info.Profile
		fields["reason"] = info.Reason
		if len(info.BSSID) > 0 {
			fields["bssid"] = FormatBSSID(info.BSSID)
		}
	}
	return fields
}

// storedFields mirrors Fields for decoding.
type storedFields struct {
	SSID           *string `json:"ssid"`
	Profile        string  `json:"profile"`
	Reason         uint32  `json:"reason"`
	BSSID          string  `json:"bssid"`
	SignalQuality  uint32  `json:"signal_quality"`
	ScanFailReason uint32  `json:"scan_fail_reason"`
}

// FromFields rebuilds an Event from its source, code and the JSON produced by
// MarshalCanonical(Fields(ev)).
func FromFields(src Source, code uint32, payload []byte) (Event, error) {
	var f storedFields
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil, fmt.Errorf("decode stored payload: %w", err)
		}
	}

	var info *ConnectionInfo
	if f.SSID != nil {
		info = &ConnectionInfo{SSID: *f.SSID, Profile: f.Profile, Reason: f.Reason}
		if f.BSSID != "" {
			mac, err := net.ParseMAC(f.BSSID)
			if err != nil {
				return nil, fmt.Errorf("decode stored bssid: %w", err)
			}
			info.BSSID = mac
		}
	}

	switch src {
	case SourceACM:
		t := ACMType(code)
		if !t.Valid() {
			return Unclassified{Source: src, Code: code}, nil
		}
		return ConnectionManager{Type: t, Info: info, ScanFailReason: f.ScanFailReason}, nil
	case SourceMSM:
		t := MSMType(code)
		if !t.Valid() {
			return Unclassified{Source: src, Code: code}, nil
		}
		return MediaState{Type: t, Info: info, SignalQuality: f.SignalQuality}, nil
	case SourceOneX:
		if t := OneXType(code); t.Valid() {
			return Authentication{Type: t}, nil
		}
	case SourceHosted:
		if t := HostedType(code); t.Valid() {
			return HostedNetwork{Type: t}, nil
		}
	}
	return Unclassified{Source: src, Code: code}, nil
}
