package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/roamwatch/internal/bus"
	"github.com/roach88/roamwatch/internal/notify"
	"github.com/roach88/roamwatch/internal/wlan"
)

// SignalTracker follows signal quality notifications on the bus, logs each
// change as "old -> new" and updates the signal gauges.
type SignalTracker struct {
	metrics *Metrics
	log     *slog.Logger

	last    atomic.Uint32
	changes atomic.Uint64
}

// NewSignalTracker creates a tracker. m may be nil to only log.
func NewSignalTracker(m *Metrics, logger *slog.Logger) *SignalTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalTracker{metrics: m, log: logger}
}

// Quality returns the last reported quality, 0 before the first report.
func (t *SignalTracker) Quality() uint32 {
	return t.last.Load()
}

// Changes returns how many reports changed the quality.
func (t *SignalTracker) Changes() uint64 {
	return t.changes.Load()
}

// Run consumes sub until ctx is cancelled or the bus closes. The subscription
// is closed on return.
func (t *SignalTracker) Run(ctx context.Context, sub *bus.Subscription) error {
	defer sub.Close()
	for {
		d, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) {
				return nil
			}
			return err
		}
		t.Observe(d.Event)
	}
}

// Observe handles one event. Events other than signal quality changes are
// ignored.
func (t *SignalTracker) Observe(ev notify.Event) {
	ms, ok := ev.(notify.MediaState)
	if !ok || ms.Type != notify.MSMSignalQualityChange {
		return
	}
	q := ms.SignalQuality
	old := t.last.Swap(q)
	if old == q {
		return
	}
	t.changes.Add(1)

	rssi := wlan.RSSIFromQuality(int(q))
	t.log.Info("signal quality changed", "change", formatChange(old, q), "rssi_dbm", rssi)
	if t.metrics != nil {
		t.metrics.SetSignal(q, rssi)
	}
}

func formatChange(old, q uint32) string {
	return fmt.Sprintf("%d -> %d", old, q)
}
