package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/roach88/roamwatch/internal/notify"
)

// DefaultSubscriberBuffer is the per-subscription queue bound used when none is configured.
const DefaultSubscriberBuffer = 256

// ErrClosed is returned by Subscription.Next once the subscription or the bus
// has been closed and every queued event has been read.
var ErrClosed = errors.New("bus: subscription closed")

// Stats is a snapshot of bus counters.
type Stats struct {
	Published   uint64
	Delivered   uint64
	Dropped     uint64
	Subscribers int
}

// Option configures a Bus.
type Option func(*Bus)

// WithSubscriberBuffer sets the per-subscription queue bound.
func WithSubscriberBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithClock sets the clock used to stamp published events.
func WithClock(c *Clock) Option {
	return func(b *Bus) {
		b.clock = c
	}
}

// Bus is a single-publisher, multi-subscriber broadcast of notifications.
//
// Thread-safety model:
//   - Publish(): safe from any goroutine, never blocks on subscribers
//   - Subscribe()/Subscription.Close(): safe from any goroutine
//   - Subscription.Next(): one reader per subscription
type Bus struct {
	mu         sync.RWMutex
	subs       map[uint64]*Subscription
	nextID     uint64
	closed     bool
	bufferSize int
	clock      *Clock

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// New creates an open Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:       make(map[uint64]*Subscription),
		bufferSize: DefaultSubscriberBuffer,
		clock:      NewClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish stamps ev with the next sequence number and delivers it to every
// current subscription. Returns the sequence number, or 0 if the bus is closed.
func (b *Bus) Publish(ev notify.Event) int64 {
	// Exclusive so concurrent publishers cannot interleave sequence order.
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}

	seq := b.clock.Next()
	b.published.Add(1)

	for _, sub := range b.subs {
		ok, dropped := sub.queue.push(Delivery{Seq: seq, Event: ev})
		if !ok {
			continue
		}
		b.delivered.Add(1)
		if dropped {
			b.dropped.Add(1)
		}
	}

	return seq
}

// Subscribe registers a new subscription. It only receives events published
// after this call returns. Subscribing to a closed bus yields a subscription
// that is already closed.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id:    b.nextID,
		bus:   b,
		queue: newDeliveryQueue(b.bufferSize),
	}
	b.nextID++

	if b.closed {
		sub.queue.close()
		return sub
	}

	b.subs[sub.id] = sub
	return sub
}

// Close ends all subscriptions. Subscribers can still drain what was queued.
// Safe to call multiple times.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.queue.close()
		delete(b.subs, id)
	}
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		Published:   b.published.Load(),
		Delivered:   b.delivered.Load(),
		Dropped:     b.dropped.Load(),
		Subscribers: n,
	}
}

// Pending returns the total number of queued, unread deliveries across all
// subscriptions.
func (b *Bus) Pending() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, sub := range b.subs {
		total += sub.queue.len()
	}
	return total
}

// Clock returns the clock stamping published events.
func (b *Bus) Clock() *Clock {
	return b.clock
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Subscription is one consumer's view of the bus.
type Subscription struct {
	id        uint64
	bus       *Bus
	queue     *deliveryQueue
	closeOnce sync.Once
}

// Next blocks until a delivery is available, ctx is done, or the
// subscription is closed and drained (ErrClosed).
func (s *Subscription) Next(ctx context.Context) (Delivery, error) {
	for {
		if d, ok := s.queue.tryPop(); ok {
			return d, nil
		}

		if s.queue.isDrained() {
			return Delivery{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		case <-s.queue.wait():
			// Loop back to tryPop. A closed signal channel fires
			// immediately and the drained check above ends the loop.
		}
	}
}

// TryNext returns the next delivery without blocking.
func (s *Subscription) TryNext() (Delivery, bool) {
	return s.queue.tryPop()
}

// Len returns the number of unread deliveries.
func (s *Subscription) Len() int {
	return s.queue.len()
}

// Dropped returns how many deliveries this subscription lost to overflow.
func (s *Subscription) Dropped() uint64 {
	return s.queue.droppedCount()
}

// Close unregisters the subscription and wakes any blocked Next.
// Safe to call multiple times and from any goroutine.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.remove(s.id)
		s.queue.close()
	})
}
