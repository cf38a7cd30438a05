package harness

import (
	"fmt"
	"strings"
)

// TraceEvent is one fold of the transition function.
//
// State is the state the step reached: the terminal state when the step
// produced an outcome, otherwise the state the engine holds afterwards.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Event    string `json:"event"`
	From     string `json:"from"`
	State    string `json:"state"`
	Accepted bool   `json:"accepted"`
	Outcome  string `json:"outcome,omitempty"`
}

// String renders the step as one golden-file line.
func (e TraceEvent) String() string {
	switch {
	case !e.Accepted:
		return fmt.Sprintf("#%d %s: ignored in %s", e.Seq, e.Event, e.From)
	case e.Outcome != "":
		return fmt.Sprintf("#%d %s: %s -> %s => %s", e.Seq, e.Event, e.From, e.State, e.Outcome)
	default:
		return fmt.Sprintf("#%d %s: %s -> %s", e.Seq, e.Event, e.From, e.State)
	}
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Trace      []TraceEvent `json:"trace"`
	Outcomes   []string     `json:"outcomes"`
	FinalState string       `json:"final_state"`

	// Violations counts invariant errors the engine logged.
	Violations int `json:"violations,omitempty"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Outcomes: []string{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// TraceText renders the trace for golden comparison. The output always ends
// with a newline.
func (r *Result) TraceText(name string) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	for _, ev := range r.Trace {
		buf.WriteString(ev.String())
		buf.WriteByte('\n')
	}
	fmt.Fprintf(&buf, "final: %s\n", r.FinalState)
	return buf.String()
}
