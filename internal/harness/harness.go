package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/roamwatch/internal/engine"
	"github.com/roach88/roamwatch/internal/notify"
)

// Run folds the scenario's events through a fresh engine and checks the
// expectations and assertions.
//
// Events go through the same encode/decode path the platform callback uses,
// so a scenario exercises payload decoding as well as correlation. Steps are
// numbered from 1 in place of bus sequence numbers.
//
// The returned error is reserved for scenarios that cannot be executed; a
// failed expectation is reported through Result.Pass and Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := engine.NewSink()
	eng := engine.New(sink, engine.WithLogger(logger))

	result := NewResult()
	for i, se := range scenario.Events {
		ev, err := se.Event()
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		seq := int64(i + 1)
		step := eng.StepSeq(seq, ev)
		result.Trace = append(result.Trace, traceStep(seq, ev, step))
		if step.Err != nil {
			result.Violations++
		}
	}

	for _, o := range sink.Drain() {
		result.Outcomes = append(result.Outcomes, o.String())
	}
	result.FinalState = eng.State().String()

	checkExpectations(scenario, result)
	for _, a := range scenario.Assertions {
		if err := evaluateAssertion(result.Trace, a); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

func traceStep(seq int64, ev notify.Event, step engine.StepResult) TraceEvent {
	te := TraceEvent{
		Seq:      seq,
		Event:    describeEvent(ev),
		From:     step.From.String(),
		State:    step.To.String(),
		Accepted: step.Accepted,
	}
	switch {
	case step.Outcome != nil:
		// The engine resets to idle after an outcome; show the terminal
		// state that produced it.
		if terminal, ok := engine.Transition(step.From, ev); ok {
			te.State = terminal.String()
		}
		te.Outcome = step.Outcome.String()
	case step.Err != nil:
		te.Outcome = "invariant violated"
	}
	return te
}

// describeEvent names an event by discriminant, plus the reason code when a
// connection notification reports failure.
func describeEvent(ev notify.Event) string {
	var info *notify.ConnectionInfo
	switch e := ev.(type) {
	case notify.ConnectionManager:
		info = e.Info
	case notify.MediaState:
		info = e.Info
	}
	if info != nil && !info.Success() {
		return fmt.Sprintf("%s(reason=0x%x)", ev.Discriminant(), info.Reason)
	}
	return ev.Discriminant().String()
}

func checkExpectations(scenario *Scenario, result *Result) {
	want := make([]string, 0, len(scenario.Expect.Outcomes))
	for _, eo := range scenario.Expect.Outcomes {
		o, err := eo.Outcome()
		if err != nil {
			result.AddError(err.Error())
			return
		}
		want = append(want, o.String())
	}

	if len(want) != len(result.Outcomes) {
		result.AddError(fmt.Sprintf("expected %d outcome(s) %q, got %d %q",
			len(want), want, len(result.Outcomes), result.Outcomes))
	} else {
		for i := range want {
			if want[i] != result.Outcomes[i] {
				result.AddError(fmt.Sprintf("outcome[%d]: expected %q, got %q", i, want[i], result.Outcomes[i]))
			}
		}
	}

	if fs := scenario.Expect.FinalState; fs != "" && fs != result.FinalState {
		result.AddError(fmt.Sprintf("final state: expected %q, got %q", fs, result.FinalState))
	}
	if result.Violations > 0 {
		result.AddError(fmt.Sprintf("%d invariant violation(s)", result.Violations))
	}
}
