package engine

import (
	"fmt"
	"strings"
)

// Phase is the progress of a roam or reconnect sequence.
//
// The concrete type is one of Attempting, Authenticating, SucceededClean,
// SucceededWithNotes or Failed. The last three are terminal.
type Phase interface {
	String() string
	terminal() bool
	phase()
}

// Attempting is the first phase after a sequence starts.
type Attempting struct{}

// Authenticating counts authentication restarts seen so far.
type Authenticating struct {
	Retries int
}

// SucceededClean is a terminal phase with no retries.
type SucceededClean struct{}

// SucceededWithNotes is a terminal success that needed retries.
type SucceededWithNotes struct {
	Notes []string
}

// Failed is a terminal failure.
type Failed struct {
	Notes []string
}

func (Attempting) phase()         {}
func (Authenticating) phase()     {}
func (SucceededClean) phase()     {}
func (SucceededWithNotes) phase() {}
func (Failed) phase()             {}

func (Attempting) terminal() bool         { return false }
func (Authenticating) terminal() bool     { return false }
func (SucceededClean) terminal() bool     { return true }
func (SucceededWithNotes) terminal() bool { return true }
func (Failed) terminal() bool             { return true }

func (Attempting) String() string { return "attempting" }

func (p Authenticating) String() string { return fmt.Sprintf("authenticating:%d", p.Retries) }

func (SucceededClean) String() string { return "succeeded_clean" }

func (p SucceededWithNotes) String() string {
	return "succeeded_with_notes[" + strings.Join(p.Notes, "; ") + "]"
}

func (p Failed) String() string {
	return "failed[" + strings.Join(p.Notes, "; ") + "]"
}

// State is the correlation state. The concrete type is Idle, Roaming or
// Reconnecting. States are values and are replaced, never mutated.
type State interface {
	String() string
	state()
}

// Idle is the rest state.
type Idle struct{}

// Roaming tracks a roam between access points of the same network.
type Roaming struct {
	Phase Phase
}

// Reconnecting tracks a connection attempt from a disconnected adapter.
type Reconnecting struct {
	Phase Phase
}

func (Idle) state()         {}
func (Roaming) state()      {}
func (Reconnecting) state() {}

func (Idle) String() string { return "idle" }

func (s Roaming) String() string { return "roaming(" + phaseString(s.Phase) + ")" }

func (s Reconnecting) String() string { return "reconnecting(" + phaseString(s.Phase) + ")" }

func phaseString(p Phase) string {
	if p == nil {
		return "<nil>"
	}
	return p.String()
}

// phaseOf returns the inner phase of s, or nil for Idle.
func phaseOf(s State) Phase {
	switch st := s.(type) {
	case Roaming:
		return st.Phase
	case Reconnecting:
		return st.Phase
	default:
		return nil
	}
}

// IsTerminal reports whether s carries a terminal phase.
// Idle is never terminal.
func IsTerminal(s State) bool {
	p := phaseOf(s)
	return p != nil && p.terminal()
}

// IsIdle reports whether s is the rest state.
func IsIdle(s State) bool {
	_, ok := s.(Idle)
	return ok
}

// Validate checks that s is one of the well-formed correlation states.
// It returns an *InvariantError describing the first problem found.
func Validate(s State) error {
	switch st := s.(type) {
	case Idle:
		return nil
	case Roaming, Reconnecting:
		p := phaseOf(st)
		if p == nil {
			return newInvariantError(ErrCodeMalformedState, s, "phase is nil")
		}
		if a, ok := p.(Authenticating); ok && a.Retries < 0 {
			return newInvariantError(ErrCodeMalformedState, s, "negative retry count")
		}
		return nil
	case nil:
		return newInvariantError(ErrCodeMalformedState, s, "state is nil")
	default:
		return newInvariantError(ErrCodeMalformedState, s, fmt.Sprintf("unknown state type %T", s))
	}
}
