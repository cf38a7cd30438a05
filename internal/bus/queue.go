package bus

import (
	"sync"

	"github.com/roach88/roamwatch/internal/notify"
)

// Delivery is one event as seen by one subscriber.
type Delivery struct {
	// Seq is the bus-wide publish sequence number.
	Seq int64

	// Event is the decoded notification.
	Event notify.Event

	// Missed is the number of events dropped for this subscriber
	// immediately before this one because its queue overflowed.
	// Zero means the stream is contiguous.
	Missed int
}

// deliveryQueue is a bounded FIFO with drop-oldest overflow.
//
// Push never blocks. The signal channel (buffered, size 1) coalesces
// wake-ups so that a reader can wait with select alongside ctx.Done().
type deliveryQueue struct {
	mu      sync.Mutex
	items   []Delivery
	limit   int
	missed  int // drops not yet reported to the reader
	dropped uint64
	closed  bool
	signal  chan struct{}
}

func newDeliveryQueue(limit int) *deliveryQueue {
	if limit <= 0 {
		limit = DefaultSubscriberBuffer
	}
	return &deliveryQueue{
		items:  make([]Delivery, 0, min(limit, 64)),
		limit:  limit,
		signal: make(chan struct{}, 1),
	}
}

// push appends d, discarding the oldest pending item when full.
// Returns false if the queue is closed, and whether an item was dropped.
func (q *deliveryQueue) push(d Delivery) (ok bool, dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, false
	}

	if len(q.items) >= q.limit {
		// The dropped item's own Missed count still has to reach the reader.
		q.missed += q.items[0].Missed + 1
		q.dropped++
		q.items[0] = Delivery{}
		q.items = q.items[1:]
		dropped = true
	}

	q.items = append(q.items, d)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true, dropped
}

// tryPop removes the front item without blocking.
func (q *deliveryQueue) tryPop() (Delivery, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Delivery{}, false
	}

	d := q.items[0]
	q.items[0] = Delivery{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	if q.missed > 0 {
		d.Missed += q.missed
		q.missed = 0
	}

	return d, true
}

// wait returns a channel that signals when items may be available.
// The channel is closed when the queue is closed.
func (q *deliveryQueue) wait() <-chan struct{} {
	return q.signal
}

func (q *deliveryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *deliveryQueue) droppedCount() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// isDrained reports whether the queue is closed and has nothing left to read.
func (q *deliveryQueue) isDrained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}

// close wakes all waiters. Items already queued can still be read.
func (q *deliveryQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
