package engine

import (
	"fmt"
	"slices"
	"strings"
)

// Kind says which sequence an outcome classifies.
type Kind int

const (
	KindRoam Kind = iota + 1
	KindReconnect
)

func (k Kind) String() string {
	switch k {
	case KindRoam:
		return "roam"
	case KindReconnect:
		return "reconnect"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "roam":
		return KindRoam, nil
	case "reconnect":
		return KindReconnect, nil
	default:
		return 0, fmt.Errorf("unknown outcome kind %q", s)
	}
}

// Result is the qualitative result of a sequence.
type Result int

const (
	ResultClean Result = iota + 1
	ResultWithNotes
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultClean:
		return "clean"
	case ResultWithNotes:
		return "with_notes"
	case ResultFailed:
		return "failed"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// ParseResult is the inverse of Result.String.
func ParseResult(s string) (Result, error) {
	switch s {
	case "clean":
		return ResultClean, nil
	case "with_notes":
		return ResultWithNotes, nil
	case "failed":
		return ResultFailed, nil
	default:
		return 0, fmt.Errorf("unknown outcome result %q", s)
	}
}

// Outcome is a classified roam or reconnect.
// Notes is empty for ResultClean.
type Outcome struct {
	Kind   Kind     `json:"kind"`
	Result Result   `json:"result"`
	Notes  []string `json:"notes,omitempty"`
}

// MarshalText lets Kind encode as its name in JSON output.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// MarshalText lets Result encode as its name in JSON output.
func (r Result) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (o Outcome) String() string {
	if len(o.Notes) == 0 {
		return o.Kind.String() + " " + o.Result.String()
	}
	return o.Kind.String() + " " + o.Result.String() + ": " + strings.Join(o.Notes, "; ")
}

// Equal compares outcomes by value.
func (o Outcome) Equal(other Outcome) bool {
	return o.Kind == other.Kind && o.Result == other.Result && slices.Equal(o.Notes, other.Notes)
}

// ToOutcome maps a terminal state to its outcome. Mapping Idle or a
// non-terminal phase is an invariant violation and returns *InvariantError.
func ToOutcome(s State) (Outcome, error) {
	var kind Kind
	switch s.(type) {
	case Roaming:
		kind = KindRoam
	case Reconnecting:
		kind = KindReconnect
	default:
		return Outcome{}, newInvariantError(ErrCodeNotTerminal, s, "only roaming or reconnecting states map to outcomes")
	}

	switch p := phaseOf(s).(type) {
	case SucceededClean:
		return Outcome{Kind: kind, Result: ResultClean}, nil
	case SucceededWithNotes:
		return Outcome{Kind: kind, Result: ResultWithNotes, Notes: slices.Clone(p.Notes)}, nil
	case Failed:
		return Outcome{Kind: kind, Result: ResultFailed, Notes: slices.Clone(p.Notes)}, nil
	default:
		return Outcome{}, newInvariantError(ErrCodeNotTerminal, s, "phase is not terminal")
	}
}
