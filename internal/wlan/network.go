package wlan

import (
	"fmt"

	"github.com/roach88/roamwatch/internal/notify"
)

// MaxSSIDLen is the longest SSID 802.11 allows, in bytes.
const MaxSSIDLen = 32

// Channel center frequency bounds in kHz.
const (
	lowerBound2GHz = 2_401_000
	upperBound2GHz = 2_495_000
	lowerBound5GHz = 5_150_000
	upperBound5GHz = 5_895_000

	channelSeparation = 5_000
)

// Band is a radio band.
type Band int

const (
	BandUnknown Band = iota
	Band2_4GHz
	Band5GHz
)

func (b Band) String() string {
	switch b {
	case Band2_4GHz:
		return "2.4"
	case Band5GHz:
		return "5"
	default:
		return "unknown"
	}
}

// MarshalText renders the band as its String form.
func (b Band) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// BandOf classifies a channel center frequency in kHz.
func BandOf(freq uint32) (Band, error) {
	switch {
	case freq >= lowerBound2GHz && freq <= upperBound2GHz:
		return Band2_4GHz, nil
	case freq >= lowerBound5GHz && freq <= upperBound5GHz:
		return Band5GHz, nil
	default:
		return BandUnknown, fmt.Errorf("invalid frequency for network %d", freq)
	}
}

// Channel maps a channel center frequency in kHz to a channel number.
func Channel(freq uint32) (uint32, error) {
	band, err := BandOf(freq)
	if err != nil {
		return 0, err
	}
	if band == Band5GHz {
		return 32 + (freq-lowerBound5GHz)/channelSeparation, nil
	}
	return 1 + (freq-lowerBound2GHz)/channelSeparation, nil
}

// RSSIFromQuality linearly maps a signal quality percentage to dBm:
// 0 is -100 dBm and 100 is -50 dBm.
func RSSIFromQuality(q int) int {
	const (
		x0, x1 = 0, 100
		y0, y1 = -100, -50
	)
	return y1 + (q-x1)*(y1-y0)/(x1-x0)
}

// ValidateSSID checks that ssid fits in a DOT11_SSID.
func ValidateSSID(ssid string) error {
	if len(ssid) > MaxSSIDLen {
		return fmt.Errorf("ssid %q is %d bytes, max %d", ssid, len(ssid), MaxSSIDLen)
	}
	return nil
}

// FilterAvailable drops hidden networks (empty SSID) and repeated SSIDs.
// The platform lists a network once per matching profile, so the first entry wins.
func FilterAvailable(networks []AvailableNetwork) []AvailableNetwork {
	seen := make(map[string]struct{}, len(networks))
	out := make([]AvailableNetwork, 0, len(networks))
	for _, n := range networks {
		if n.SSID == "" {
			continue
		}
		if _, dup := seen[n.SSID]; dup {
			continue
		}
		seen[n.SSID] = struct{}{}
		out = append(out, n)
	}
	return out
}

// JoinNetworks pairs every BSS entry with the available network of the same
// SSID, in available-network order. Entries on an unrecognized band are
// kept with channel 0.
func JoinNetworks(networks []AvailableNetwork, bss []BSSEntry) []Network {
	var out []Network
	for _, n := range networks {
		for _, b := range bss {
			if b.SSID != n.SSID {
				continue
			}
			band, _ := BandOf(b.Frequency)
			ch, _ := Channel(b.Frequency)
			out = append(out, Network{
				SSID:        n.SSID,
				BSSID:       notify.FormatBSSID(b.BSSID),
				RSSI:        b.RSSI,
				LinkQuality: b.LinkQuality,
				Channel:     ch,
				Band:        band,
				Security:    n.Security(),
			})
		}
	}
	return out
}

var authNames = map[uint32]string{
	1:  "open",
	2:  "shared_key",
	3:  "wpa",
	4:  "wpa_psk",
	5:  "wpa_none",
	6:  "rsna",
	7:  "rsna_psk",
	8:  "wpa3_ent_192",
	9:  "wpa3_sae",
	10: "owe",
	11: "wpa3_ent",
}

var cipherNames = map[uint32]string{
	0x00:  "none",
	0x01:  "wep40",
	0x02:  "tkip",
	0x04:  "ccmp",
	0x05:  "wep104",
	0x06:  "bip",
	0x08:  "gcmp",
	0x09:  "gcmp_256",
	0x100: "wpa_use_group",
	0x101: "wep",
}

// AuthName renders a DOT11_AUTH_ALGORITHM value.
func AuthName(v uint32) string {
	if s, ok := authNames[v]; ok {
		return s
	}
	return fmt.Sprintf("auth(%d)", v)
}

// CipherName renders a DOT11_CIPHER_ALGORITHM value.
func CipherName(v uint32) string {
	if s, ok := cipherNames[v]; ok {
		return s
	}
	return fmt.Sprintf("cipher(0x%x)", v)
}

var interfaceStates = [...]string{
	"not_ready",
	"connected",
	"ad_hoc_network_formed",
	"disconnecting",
	"disconnected",
	"associating",
	"discovering",
	"authenticating",
}

// InterfaceStateName renders a WLAN_INTERFACE_STATE value.
func InterfaceStateName(v uint32) string {
	if int(v) < len(interfaceStates) {
		return interfaceStates[v]
	}
	return fmt.Sprintf("state(%d)", v)
}
