package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/roamwatch/internal/config"
	"github.com/roach88/roamwatch/internal/wlan"
)

// openAdapter opens the adapter named by cfg.
func openAdapter(cfg config.Config, logger *slog.Logger) (wlan.Adapter, error) {
	switch cfg.Adapter {
	case config.AdapterSim:
		script, err := wlan.LoadScript(cfg.SimScript)
		if err != nil {
			return nil, err
		}
		return wlan.NewSim(script, logger.With("component", "sim")), nil
	case config.AdapterWindows:
		return wlan.OpenPlatform(logger.With("component", "wlan"))
	default:
		return nil, fmt.Errorf("unknown adapter %q", cfg.Adapter)
	}
}

// interfaceName describes the adapter's first interface for logs and
// capture sessions. An adapter that cannot list interfaces yields "".
func interfaceName(ctx context.Context, a wlan.Adapter, logger *slog.Logger) string {
	ifaces, err := a.Interfaces(ctx)
	if err == nil && len(ifaces) == 0 {
		err = wlan.ErrNoInterface
	}
	if err != nil {
		logger.Warn("could not list wireless interfaces", "error", err)
		return ""
	}
	first := ifaces[0]
	logger.Info("wireless interface", "description", first.Description, "guid", first.GUID, "state", first.State)
	return first.Description
}
