package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestRunWithGolden_FailedExpectationIsError(t *testing.T) {
	s := &Scenario{
		Name:        "clean_roam",
		Description: "wrong expectation",
		Events:      roamEvents("roaming_start", "authenticating", "roaming_end"),
		Expect:      Expectation{Outcomes: []ExpectedOutcome{{Kind: "reconnect", Result: "clean"}}},
	}

	err := RunWithGolden(t, s)
	require.Error(t, err)
	require.Contains(t, err.Error(), "outcome[0]")
}
