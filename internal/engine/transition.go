package engine

import (
	"fmt"

	"github.com/roach88/roamwatch/internal/notify"
)

// Transition is the correlation function. It returns the next state and
// true when ev drives a transition from s, or s and false when ev is
// ignored in s.
//
// Rules are tried in table order and the first match wins:
//
//	Idle                          + msm.roaming_start          -> Roaming(Attempting)
//	Roaming(Attempting)           + msm.authenticating         -> Roaming(Authenticating(0))
//	Roaming(Attempting)           + msm.disconnected           -> Idle
//	Roaming(Authenticating(0))    + msm.roaming_end            -> Roaming(SucceededClean)
//	Roaming(Authenticating(n))    + msm.roaming_start          -> Roaming(Authenticating(n+1))
//	Roaming(Authenticating(n>0))  + msm.roaming_end            -> Roaming(SucceededWithNotes)
//	Roaming(Authenticating(n))    + msm.disconnected           -> Roaming(Failed)
//	Idle                          + acm.connection_start       -> Reconnecting(Attempting)
//	Reconnecting(Attempting)      + msm.authenticating         -> Reconnecting(Authenticating(0))
//	Reconnecting(Authenticating(0))   + acm.connection_complete ok   -> Reconnecting(SucceededClean)
//	Reconnecting(Authenticating(n))   + msm.authenticating           -> Reconnecting(Authenticating(n+1))
//	Reconnecting(Authenticating(n>0)) + acm.connection_complete ok   -> Reconnecting(SucceededWithNotes)
//	Reconnecting(Authenticating(n))   + acm.connection_complete fail -> Reconnecting(Failed)
//
// Roaming(Attempting) + msm.disconnected returns to Idle without an outcome:
// a manual disconnect or radio-off emits a roaming start the adapter never
// finishes.
func Transition(s State, ev notify.Event) (State, bool) {
	switch cur := s.(type) {
	case Idle:
		switch {
		case isMSM(ev, notify.MSMRoamingStart):
			return Roaming{Phase: Attempting{}}, true
		case isACM(ev, notify.ACMConnectionStart):
			return Reconnecting{Phase: Attempting{}}, true
		}
	case Roaming:
		if next, ok := roamTransition(cur.Phase, ev); ok {
			return next, true
		}
	case Reconnecting:
		if next, ok := reconnectTransition(cur.Phase, ev); ok {
			return next, true
		}
	}
	return s, false
}

func roamTransition(p Phase, ev notify.Event) (State, bool) {
	switch ph := p.(type) {
	case Attempting:
		switch {
		case isMSM(ev, notify.MSMAuthenticating):
			return Roaming{Phase: Authenticating{Retries: 0}}, true
		case isMSM(ev, notify.MSMDisconnected):
			return Idle{}, true
		}
	case Authenticating:
		n := ph.Retries
		switch {
		case n == 0 && isMSM(ev, notify.MSMRoamingEnd):
			return Roaming{Phase: SucceededClean{}}, true
		case isMSM(ev, notify.MSMRoamingStart):
			return Roaming{Phase: Authenticating{Retries: n + 1}}, true
		case n > 0 && isMSM(ev, notify.MSMRoamingEnd):
			return Roaming{Phase: SucceededWithNotes{Notes: []string{retriesNote(n)}}}, true
		case isMSM(ev, notify.MSMDisconnected):
			return Roaming{Phase: Failed{Notes: []string{fmt.Sprintf("Roam failed after %d retries", n)}}}, true
		}
	}
	return nil, false
}

func reconnectTransition(p Phase, ev notify.Event) (State, bool) {
	switch ph := p.(type) {
	case Attempting:
		if isMSM(ev, notify.MSMAuthenticating) {
			return Reconnecting{Phase: Authenticating{Retries: 0}}, true
		}
	case Authenticating:
		n := ph.Retries
		success, complete := connectionComplete(ev)
		switch {
		case n == 0 && complete && success:
			return Reconnecting{Phase: SucceededClean{}}, true
		case isMSM(ev, notify.MSMAuthenticating):
			return Reconnecting{Phase: Authenticating{Retries: n + 1}}, true
		case n > 0 && complete && success:
			return Reconnecting{Phase: SucceededWithNotes{Notes: []string{retriesNote(n)}}}, true
		case complete && !success:
			return Reconnecting{Phase: Failed{Notes: []string{fmt.Sprintf("Failed after %d retries", n)}}}, true
		}
	}
	return nil, false
}

func retriesNote(n int) string {
	return fmt.Sprintf("%d auth retries", n)
}

func isMSM(ev notify.Event, t notify.MSMType) bool {
	e, ok := ev.(notify.MediaState)
	return ok && e.Type == t
}

func isACM(ev notify.Event, t notify.ACMType) bool {
	e, ok := ev.(notify.ConnectionManager)
	return ok && e.Type == t
}

// connectionComplete reports whether ev is a connection-complete event and,
// if so, whether it succeeded. An event without connection info carries no
// reason code and is not treated as a completion.
func connectionComplete(ev notify.Event) (success, ok bool) {
	e, isCM := ev.(notify.ConnectionManager)
	if !isCM || e.Type != notify.ACMConnectionComplete || e.Info == nil {
		return false, false
	}
	return e.Info.Success(), true
}
