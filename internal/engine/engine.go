package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/roamwatch/internal/bus"
	"github.com/roach88/roamwatch/internal/notify"
)

// Engine is the single-writer correlation loop.
//
// It folds every bus delivery through Transition, records an Outcome in the
// Sink when a terminal state is reached and resets to Idle.
//
// Thread-safety model:
//   - Run()/Step(): must be called from exactly one goroutine
//   - State()/Stats(): safe from any goroutine
type Engine struct {
	sink       *Sink
	log        *slog.Logger
	staleAfter time.Duration
	now        func() time.Time
	onOutcome  func(seq int64, o Outcome)
	transition func(State, notify.Event) (State, bool)

	// current is written only by the loop goroutine.
	current atomic.Pointer[snapshot]

	events     atomic.Uint64
	accepted   atomic.Uint64
	outcomes   atomic.Uint64
	violations atomic.Uint64
	staleReset atomic.Uint64
	missed     atomic.Uint64
}

type snapshot struct {
	state State
	since time.Time
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Events      uint64
	Transitions uint64
	Outcomes    uint64
	Violations  uint64
	StaleResets uint64
	Missed      uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithStaleAfter force-resets a non-idle state to Idle when no transition
// has been accepted for d. Zero disables the reset, which is the default.
func WithStaleAfter(d time.Duration) Option {
	return func(e *Engine) {
		e.staleAfter = d
	}
}

// WithNow sets the clock used for stale detection. Run measures how long a
// state has been idle on this clock; the wait for the next delivery is still
// real time.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithOutcomeHook registers fn to observe every outcome after it is recorded
// in the sink. seq is the sequence number of the event that completed it.
// fn runs on the engine goroutine and must not block.
func WithOutcomeHook(fn func(seq int64, o Outcome)) Option {
	return func(e *Engine) {
		e.onOutcome = fn
	}
}

// New creates an engine in the Idle state that records outcomes in sink.
func New(sink *Sink, opts ...Option) *Engine {
	e := &Engine{
		sink:       sink,
		log:        slog.Default(),
		now:        time.Now,
		transition: Transition,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.current.Store(&snapshot{state: Idle{}, since: e.now()})
	return e
}

// State returns the current correlation state.
func (e *Engine) State() State {
	return e.current.Load().state
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Events:      e.events.Load(),
		Transitions: e.accepted.Load(),
		Outcomes:    e.outcomes.Load(),
		Violations:  e.violations.Load(),
		StaleResets: e.staleReset.Load(),
		Missed:      e.missed.Load(),
	}
}

// Run consumes sub until ctx is cancelled or the subscription is closed and
// drained. The subscription is closed on return.
//
// Returns ctx.Err() on cancellation and nil when the bus closed.
func (e *Engine) Run(ctx context.Context, sub *bus.Subscription) error {
	defer sub.Close()
	e.log.Info("engine starting", "state", e.State(), "stale_after", e.staleAfter)

	for {
		e.expireIfStale()
		waitCtx, cancel := e.waitContext(ctx)
		d, err := sub.Next(waitCtx)
		cancel()

		if err != nil {
			switch {
			case ctx.Err() != nil:
				e.log.Info("engine stopping: context cancelled", "state", e.State())
				return ctx.Err()
			case errors.Is(err, bus.ErrClosed):
				e.log.Info("engine stopping: bus closed", "state", e.State())
				return nil
			case errors.Is(err, context.DeadlineExceeded):
				continue
			default:
				return err
			}
		}

		if d.Missed > 0 {
			e.missed.Add(uint64(d.Missed))
			e.log.Warn("engine fell behind, notifications lost",
				"missed", d.Missed,
				"seq", d.Seq,
				"state", e.State(),
			)
		}
		e.apply(d.Seq, d.Event)
	}
}

// Step folds a single event synchronously. It is the same code path Run
// uses and exists for replay and scenario runs that do not need a bus.
func (e *Engine) Step(ev notify.Event) StepResult {
	return e.apply(0, ev)
}

// StepSeq is Step for an event with a known bus sequence number, as read
// back from a capture log.
func (e *Engine) StepSeq(seq int64, ev notify.Event) StepResult {
	return e.apply(seq, ev)
}

// StepResult describes one fold of the transition function.
type StepResult struct {
	From     State
	To       State
	Accepted bool
	Outcome  *Outcome
	Err      error
}

func (e *Engine) apply(seq int64, ev notify.Event) StepResult {
	e.events.Add(1)
	e.expireIfStale()

	from := e.State()
	res := StepResult{From: from, To: from}

	next, ok := e.transition(from, ev)
	if !ok {
		e.log.Debug("event ignored", "event", ev, "state", from, "seq", seq)
		return res
	}
	e.accepted.Add(1)
	res.Accepted = true

	if err := Validate(next); err != nil {
		e.violate(seq, ev, from, err)
		res.To, res.Err = Idle{}, err
		return res
	}

	if !IsTerminal(next) {
		e.log.Debug("transition", "from", from, "to", next, "event", ev, "seq", seq)
		e.set(next)
		res.To = next
		return res
	}

	o, err := ToOutcome(next)
	if err != nil {
		e.violate(seq, ev, from, err)
		res.To, res.Err = Idle{}, err
		return res
	}

	e.sink.Record(o)
	e.outcomes.Add(1)
	e.log.Info("outcome", "kind", o.Kind, "result", o.Result, "notes", o.Notes, "seq", seq)
	if e.onOutcome != nil {
		e.onOutcome(seq, o)
	}

	e.set(Idle{})
	res.To, res.Outcome = Idle{}, &o
	return res
}

func (e *Engine) violate(seq int64, ev notify.Event, from State, err error) {
	e.violations.Add(1)
	e.log.Error("correlation invariant violated, resetting to idle",
		"error", err,
		"event", ev,
		"state", from,
		"seq", seq,
	)
	e.set(Idle{})
}

func (e *Engine) set(s State) {
	e.current.Store(&snapshot{state: s, since: e.now()})
}

// waitContext bounds the next wait by the time left before the current state
// goes stale. The remainder is measured on the engine clock and waited out in
// real time, so an injected clock that does not move never shortens it.
func (e *Engine) waitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	snap := e.current.Load()
	if e.staleAfter <= 0 || IsIdle(snap.state) {
		return ctx, func() {}
	}
	remaining := e.staleAfter - e.now().Sub(snap.since)
	if remaining <= 0 {
		remaining = e.staleAfter
	}
	return context.WithTimeout(ctx, remaining)
}

func (e *Engine) expireIfStale() {
	if e.staleAfter <= 0 {
		return
	}
	snap := e.current.Load()
	if IsIdle(snap.state) {
		return
	}
	idle := e.now().Sub(snap.since)
	if idle < e.staleAfter {
		return
	}
	e.staleReset.Add(1)
	e.log.Warn("correlation state stale, resetting to idle",
		"state", snap.state,
		"idle_for", idle,
	)
	e.set(Idle{})
}
