// Package engine correlates adapter notifications into roam and reconnect
// outcomes.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// One goroutine owns the correlation state. Engine.Run reads deliveries from
// a bus subscription and folds each through Transition, a pure function of
// (state, event). States are immutable values and are replaced on every
// accepted transition.
//
// Processing Flow:
// 1. Delivery read from the subscription (FIFO, sequence stamped)
// 2. Transition(state, event) picks the first matching rule or ignores the event
// 3. Non-terminal result becomes the current state
// 4. Terminal result is mapped by ToOutcome, recorded in the Sink, state resets to Idle
//
// Failure Semantics:
// Unrecognized events are non-matching input, never errors. A state that
// fails Validate or ToOutcome is an InvariantError: logged at error level,
// state reset to Idle, no outcome recorded.
//
// A sequence that never reaches a terminal notification keeps the engine in
// a non-idle state. WithStaleAfter bounds that; by default there is no bound.
//
// Outcomes are consumed by polling Sink.Drain.
package engine
