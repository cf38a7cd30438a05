package bus

import (
	"context"
	"time"

	"github.com/roach88/roamwatch/internal/notify"
)

// Match is the result of waiting for an event.
// Exactly one of Delivery (with a non-nil Event) or TimedOut is set.
type Match struct {
	Delivery
	TimedOut bool
}

// Expectation is a subscription filtered to one discriminant.
//
// Creating the expectation subscribes immediately, so a caller can register
// interest, trigger the request that will produce the event, and then Wait
// without racing the notification stream:
//
//	exp := bus.Expect(b, notify.ACM(notify.ACMScanListRefresh))
//	defer exp.Cancel()
//	if err := adapter.Scan(ctx, ""); err != nil { ... }
//	m, err := exp.Wait(ctx, 5*time.Second)
type Expectation struct {
	template notify.Event
	sub      *Subscription
}

// Expect subscribes to b and returns an expectation for events whose
// discriminant equals template's. Payload fields of template are ignored.
func Expect(b *Bus, template notify.Event) *Expectation {
	return &Expectation{
		template: template,
		sub:      b.Subscribe(),
	}
}

// Wait blocks until a matching event arrives or timeout elapses.
// A timeout <= 0 waits until ctx is done.
//
// Returns Match{TimedOut: true} with a nil error on timeout. Returns ctx.Err()
// if the caller's context ends first, and ErrClosed if the bus closes.
// The underlying subscription is released before Wait returns.
func (e *Expectation) Wait(ctx context.Context, timeout time.Duration) (Match, error) {
	defer e.Cancel()

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		d, err := e.sub.Next(waitCtx)
		if err != nil {
			// Our own deadline fired while the caller's context is still live.
			if waitCtx != ctx && waitCtx.Err() != nil && ctx.Err() == nil {
				return Match{TimedOut: true}, nil
			}
			return Match{}, err
		}

		if notify.Matches(e.template, d.Event) {
			return Match{Delivery: d}, nil
		}
	}
}

// Cancel releases the subscription without waiting.
func (e *Expectation) Cancel() {
	e.sub.Close()
}

// AwaitMatch subscribes to b and waits for an event matching template.
// See Expectation.Wait for result semantics.
func AwaitMatch(ctx context.Context, b *Bus, template notify.Event, timeout time.Duration) (Match, error) {
	return Expect(b, template).Wait(ctx, timeout)
}
