//go:build !windows

package wlan

import "log/slog"

// OpenPlatform opens the native WLAN adapter. Only Windows is supported.
func OpenPlatform(*slog.Logger) (Adapter, error) {
	return nil, ErrUnsupported
}
