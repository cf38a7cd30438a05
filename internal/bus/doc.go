// Package bus distributes decoded adapter notifications to independent
// subscribers.
//
// ARCHITECTURE:
//
// One publisher (the ingestion pump fed by the platform callback) calls
// Publish; every active Subscription receives every event published after it
// subscribed, in publish order. Each subscription owns a bounded queue. When a
// slow subscriber's queue is full the oldest pending event is discarded for
// that subscriber only, and the next Delivery it reads reports how many events
// it missed. Publish never blocks.
//
// Ingress sits in front of the bus. The platform callback runs on a thread
// the process does not control and must return quickly, so it only performs
// a non-blocking Offer into a bounded channel; when that channel is full the
// oldest queued event is dropped and counted.
//
// AwaitMatch (and Expect/Wait) lets a caller block until an event with a given
// discriminant arrives, or a timeout elapses. Timing out is a normal result.
package bus
