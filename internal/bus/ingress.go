package bus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/roamwatch/internal/notify"
)

// DefaultIngressBuffer is the ingress channel capacity used when none is configured.
const DefaultIngressBuffer = 128

// Ingress is the bounded hand-off between the platform notification callback
// and the bus.
//
// Offer never blocks: when the channel is full the oldest queued event is
// discarded and counted. Run pumps queued events into the bus from a
// goroutine the process controls.
type Ingress struct {
	ch           chan notify.Event
	mu           sync.Mutex // serializes the overflow path
	dropped      atomic.Uint64
	decodeErrors atomic.Uint64
	log          *slog.Logger
}

// NewIngress creates an ingress channel with the given capacity.
func NewIngress(size int, logger *slog.Logger) *Ingress {
	if size <= 0 {
		size = DefaultIngressBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingress{
		ch:  make(chan notify.Event, size),
		log: logger,
	}
}

// Offer queues ev without blocking. Returns false if an older event had to be
// dropped to make room.
func (in *Ingress) Offer(ev notify.Event) bool {
	select {
	case in.ch <- ev:
		return true
	default:
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	lost := false
	for {
		select {
		case in.ch <- ev:
			return !lost
		default:
		}

		select {
		case <-in.ch:
			in.dropped.Add(1)
			lost = true
		default:
			// The pump drained it between our two selects; retry the send.
		}
	}
}

// HandleRaw decodes a raw platform notification and offers it.
// Decode failures are logged and counted; the notification is not published.
// Its signature matches the callback expected by wlan.Adapter.Subscribe.
func (in *Ingress) HandleRaw(raw notify.Raw) {
	ev, err := notify.Decode(raw)
	if err != nil {
		in.decodeErrors.Add(1)
		in.log.Warn("dropping undecodable notification",
			"source", raw.Source,
			"code", raw.Code,
			"error", err,
		)
		return
	}
	if !in.Offer(ev) {
		in.log.Debug("ingress full, dropped oldest notification", "dropped_total", in.dropped.Load())
	}
}

// Dropped returns the number of events discarded because the channel was full.
func (in *Ingress) Dropped() uint64 {
	return in.dropped.Load()
}

// DecodeErrors returns the number of raw notifications that failed to decode.
func (in *Ingress) DecodeErrors() uint64 {
	return in.decodeErrors.Load()
}

// Len returns the number of queued events.
func (in *Ingress) Len() int {
	return len(in.ch)
}

// Run publishes queued events to b until ctx is cancelled.
// Events still queued at cancellation are published before returning.
func (in *Ingress) Run(ctx context.Context, b *Bus) error {
	for {
		select {
		case <-ctx.Done():
			in.flush(b)
			return ctx.Err()
		case ev := <-in.ch:
			b.Publish(ev)
		}
	}
}

func (in *Ingress) flush(b *Bus) {
	for {
		select {
		case ev := <-in.ch:
			b.Publish(ev)
		default:
			return
		}
	}
}
