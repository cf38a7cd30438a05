package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/roamwatch/internal/bus"
	"github.com/roach88/roamwatch/internal/engine"
)

// Recorder writes one session's bus deliveries and engine outcomes to the
// store.
//
// Run consumes a bus subscription on its own goroutine. RecordOutcome is
// meant for engine.WithOutcomeHook: it only queues, and queued outcomes are
// written on the next delivery and when Run returns.
type Recorder struct {
	store   *Store
	session Session
	log     *slog.Logger

	mu      sync.Mutex
	pending []RecordedOutcome

	written atomic.Uint64
	failed  atomic.Uint64
}

// NewRecorder creates a recorder for an open session.
func NewRecorder(s *Store, session Session, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   s,
		session: session,
		log:     logger.With("session", session.ID),
	}
}

// Session returns the session being recorded.
func (r *Recorder) Session() Session {
	return r.session
}

// RecordOutcome queues o for writing. Safe from any goroutine, never blocks
// on the database.
func (r *Recorder) RecordOutcome(seq int64, o engine.Outcome) {
	r.mu.Lock()
	r.pending = append(r.pending, RecordedOutcome{SessionID: r.session.ID, Seq: seq, Outcome: o})
	r.mu.Unlock()
}

// Written returns the number of rows written.
func (r *Recorder) Written() uint64 {
	return r.written.Load()
}

// Failed returns the number of rows that could not be written.
func (r *Recorder) Failed() uint64 {
	return r.failed.Load()
}

// Run captures deliveries from sub until ctx is cancelled or the bus closes.
// Write failures are logged and counted; capture is best effort and never
// stops the monitor. The subscription is closed on return.
func (r *Recorder) Run(ctx context.Context, sub *bus.Subscription) error {
	defer sub.Close()
	// A delivery already taken off the queue is written even if ctx ends
	// meanwhile, and outcomes queued during shutdown still land.
	wctx := context.WithoutCancel(ctx)
	defer r.Flush(wctx)

	for {
		d, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) {
				return nil
			}
			return err
		}

		if d.Missed > 0 {
			r.log.Warn("recorder fell behind, capture has a gap", "missed", d.Missed, "seq", d.Seq)
		}
		if err := r.store.WriteNotification(wctx, r.session.ID, d.Seq, d.Missed, d.Event); err != nil {
			r.failed.Add(1)
			r.log.Error("capture write failed", "error", err, "seq", d.Seq)
		} else {
			r.written.Add(1)
		}
		r.Flush(wctx)
	}
}

// Flush writes queued outcomes. Run flushes after every delivery and on
// return; callers flush once more after the engine has stopped.
func (r *Recorder) Flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, o := range batch {
		if err := r.store.WriteOutcome(ctx, o.SessionID, o.Seq, o.Outcome); err != nil {
			r.failed.Add(1)
			r.log.Error("capture write failed", "error", err, "seq", o.Seq, "outcome", o.Outcome)
			continue
		}
		r.written.Add(1)
	}
}
