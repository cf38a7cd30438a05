package wlan

import (
	"context"
	"errors"
	"net"

	"github.com/roach88/roamwatch/internal/notify"
)

var (
	// ErrNoInterface is returned when the platform reports no wireless interface.
	ErrNoInterface = errors.New("wlan: no wireless interface")

	// ErrUnsupported is returned by platform adapters on other platforms.
	ErrUnsupported = errors.New("wlan: adapter not supported on this platform")

	// ErrAdapterClosed is returned by operations on a closed adapter.
	ErrAdapterClosed = errors.New("wlan: adapter closed")
)

// Adapter is a handle to the platform WLAN service bound to one interface.
//
// Subscribe's callback runs on a goroutine or thread the adapter controls
// and must return quickly.
type Adapter interface {
	Interfaces(ctx context.Context) ([]Interface, error)
	Subscribe(fn func(notify.Raw)) error
	Scan(ctx context.Context, ssid string) error
	AvailableNetworks(ctx context.Context) ([]AvailableNetwork, error)
	BSSList(ctx context.Context, ssid string) ([]BSSEntry, error)
	Close() error
}

// Interface describes a wireless interface.
type Interface struct {
	GUID        string `json:"guid" yaml:"guid"`
	Description string `json:"description" yaml:"description"`
	State       string `json:"state" yaml:"state"`
}

// AvailableNetwork is one entry of the available network list.
type AvailableNetwork struct {
	SSID            string `json:"ssid" yaml:"ssid"`
	BSSCount        uint32 `json:"bss_count" yaml:"bss_count"`
	SignalQuality   uint32 `json:"signal_quality" yaml:"signal_quality"`
	SecurityEnabled bool   `json:"security_enabled" yaml:"security_enabled"`
	Auth            string `json:"auth,omitempty" yaml:"auth"`
	Cipher          string `json:"cipher,omitempty" yaml:"cipher"`
}

// RSSI estimates the received signal strength in dBm from SignalQuality.
func (n AvailableNetwork) RSSI() int {
	return RSSIFromQuality(int(n.SignalQuality))
}

// Security renders the network's security suite, or "open".
func (n AvailableNetwork) Security() string {
	if !n.SecurityEnabled {
		return "open"
	}
	return n.Auth + "-" + n.Cipher
}

// BSSEntry is one access point from the BSS list.
type BSSEntry struct {
	SSID        string           `json:"ssid"`
	BSSID       net.HardwareAddr `json:"-"`
	RSSI        int32            `json:"rssi"`
	LinkQuality uint32           `json:"link_quality"`
	// Frequency is the channel center frequency in kHz.
	Frequency uint32 `json:"frequency"`
}

// Network is an access point joined with its available-network entry.
type Network struct {
	SSID        string `json:"ssid"`
	BSSID       string `json:"bssid"`
	RSSI        int32  `json:"rssi"`
	LinkQuality uint32 `json:"link_quality"`
	Channel     uint32 `json:"channel"`
	Band        Band   `json:"band"`
	Security    string `json:"security"`
}
